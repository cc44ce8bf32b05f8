package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sethvargo/go-retry"

	"github.com/botforgehq/botforge/internal/finetune"
	"github.com/botforgehq/botforge/internal/queue"
)

const (
	pollInterval    = 30 * time.Second
	pollMaxDuration = 4 * time.Hour
)

var errStillRunning = errors.New("fine-tune job still running")

// FinetuneWorker polls the provider until the job reaches a terminal state,
// reconciling local status on every tick.
type FinetuneWorker struct {
	svc *finetune.Service
}

func NewFinetuneWorker(svc *finetune.Service) *FinetuneWorker {
	return &FinetuneWorker{svc: svc}
}

func (w *FinetuneWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.FinetunePollPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %w", err)
	}

	slog.Info("polling fine-tune job", "job_id", jobID)

	backoff := retry.WithMaxDuration(pollMaxDuration, retry.NewConstant(pollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		job, err := w.svc.SyncStatus(ctx, jobID)
		if err != nil {
			// Transient provider or store hiccups: keep polling.
			slog.Warn("status sync failed, retrying", "job_id", jobID, "error", err)
			return retry.RetryableError(err)
		}
		if !job.Status.Terminal() {
			return retry.RetryableError(errStillRunning)
		}
		slog.Info("fine-tune job reached terminal state", "job_id", jobID, "status", job.Status)
		return nil
	})
	if err != nil {
		return fmt.Errorf("poll job %s: %w", jobID, err)
	}
	return nil
}
