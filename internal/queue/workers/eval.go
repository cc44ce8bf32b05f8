package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/eval"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
)

// EvalWorker scores a succeeded fine-tune job's model against the held-out
// test set of its dataset.
type EvalWorker struct {
	evaluator *eval.Evaluator
	jobs      store.FineTuneJobStore
	datasets  store.DatasetStore
}

func NewEvalWorker(evaluator *eval.Evaluator, jobs store.FineTuneJobStore, datasets store.DatasetStore) *EvalWorker {
	return &EvalWorker{evaluator: evaluator, jobs: jobs, datasets: datasets}
}

func (w *EvalWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ReportEvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %w", err)
	}

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.FineTunedModelID == "" {
		return fmt.Errorf("job %s has no fine-tuned model to evaluate", jobID)
	}
	if job.Metadata.DatasetID == nil {
		return fmt.Errorf("job %s has no dataset reference", jobID)
	}

	ds, err := w.datasets.Get(ctx, *job.Metadata.DatasetID)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if ds.TestContent == nil || *ds.TestContent == "" {
		return fmt.Errorf("dataset %s has no test content", ds.ID)
	}

	tests, err := dataset.DecodeJSONL(*ds.TestContent)
	if err != nil {
		return fmt.Errorf("parse test content: %w", err)
	}

	botID := job.BotID
	dsID := ds.ID
	slog.Info("evaluating fine-tuned model", "job_id", jobID, "model", job.FineTunedModelID, "examples", len(tests))

	report, err := w.evaluator.Evaluate(ctx, job.FineTunedModelID, tests, eval.Refs{
		JobID:                 &jobID,
		BotID:                 &botID,
		DatasetID:             &dsID,
		TrainingExamplesCount: ds.TrainingExamplesCount,
	})
	if err != nil {
		// The evaluator recorded the failure on the report; no retry.
		slog.Error("evaluation run failed", "job_id", jobID, "error", err)
		return nil
	}

	slog.Info("evaluation report ready", "job_id", jobID, "report_id", report.ID, "accuracy", report.Accuracy)
	return nil
}
