// Package eval scores a fine-tuned model against held-out examples and
// persists the resulting training report.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/provider"
	"github.com/botforgehq/botforge/internal/store"
)

const (
	// An example counts as correct when its similarity reaches this bar.
	correctnessThreshold = 0.70

	// Zero similarity would make -ln(s) infinite; penalize it as a fixed
	// high value instead.
	zeroSimilarityPenalty = 10.0

	chatTimeout = 15 * time.Second
)

// Refs ties a report back to the entities that produced it.
type Refs struct {
	JobID                 *uuid.UUID
	BotID                 *uuid.UUID
	DatasetID             *uuid.UUID
	TrainingExamplesCount int
}

type Evaluator struct {
	chat    provider.ChatCompleter
	reports store.TrainingReportStore
}

func NewEvaluator(chat provider.ChatCompleter, reports store.TrainingReportStore) *Evaluator {
	return &Evaluator{chat: chat, reports: reports}
}

// Evaluate runs every test example through the model and aggregates
// similarity-based metrics. The report is created `testing` and always
// lands in `completed` or `failed`; a panic or persistence error never
// leaves it in `testing`.
func (e *Evaluator) Evaluate(ctx context.Context, modelID string, tests []models.TrainingExample, refs Refs) (report *models.TrainingReport, err error) {
	report = &models.TrainingReport{
		ID:                    uuid.New(),
		JobID:                 refs.JobID,
		BotID:                 refs.BotID,
		DatasetID:             refs.DatasetID,
		TrainingExamplesCount: refs.TrainingExamplesCount,
		TestExamplesCount:     len(tests),
		Status:                models.ReportStatusTesting,
		CreatedAt:             time.Now().UTC(),
	}
	if err := e.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("evaluation panicked: %v", rec)
		}
		if err != nil {
			e.fail(ctx, report, err)
		}
	}()

	if modelID == "" {
		return report, fmt.Errorf("no model to evaluate")
	}
	if len(tests) == 0 {
		return report, fmt.Errorf("no test examples")
	}

	results := make([]models.TestCaseResult, 0, len(tests))
	for _, ex := range tests {
		results = append(results, e.scoreExample(ctx, modelID, ex))
	}

	aggregate(report, results)
	now := time.Now().UTC()
	report.Status = models.ReportStatusCompleted
	report.CompletedAt = &now
	if err := e.reports.Update(ctx, report); err != nil {
		return report, fmt.Errorf("persist completed report: %w", err)
	}

	slog.Info("evaluation completed", "report_id", report.ID, "model", modelID,
		"accuracy", report.Accuracy, "examples", len(results))
	return report, nil
}

// scoreExample sends the example's user message to the model and scores
// the response against the expected assistant turn. A failed provider call
// is an incorrect, zero-similarity result, not an aborted run.
func (e *Evaluator) scoreExample(ctx context.Context, modelID string, ex models.TrainingExample) models.TestCaseResult {
	input, okIn := ex.FirstUserMessage()
	expected, okOut := ex.FirstAssistantMessage()
	if !okIn || !okOut {
		return models.TestCaseResult{Input: input, Expected: expected}
	}

	callCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	predicted, err := e.chat.ChatComplete(callCtx, modelID, []provider.Message{
		{Role: models.RoleUser, Content: input},
	})
	if err != nil {
		slog.Warn("evaluation call failed", "model", modelID, "error", err)
		return models.TestCaseResult{Input: input, Expected: expected}
	}

	sim := JaccardSimilarity(predicted, expected)
	return models.TestCaseResult{
		Input:      input,
		Expected:   expected,
		Predicted:  predicted,
		Correct:    sim >= correctnessThreshold,
		Similarity: sim,
	}
}

// aggregate derives accuracy, the threshold-based contingency metrics and
// the perplexity proxy from per-example results.
func aggregate(report *models.TrainingReport, results []models.TestCaseResult) {
	total := len(results)
	correct := 0
	var tp, fp, fn int
	var logLossSum float64

	for _, r := range results {
		if r.Correct {
			correct++
		}
		aboveThreshold := r.Similarity >= correctnessThreshold
		switch {
		case aboveThreshold && r.Correct:
			tp++
		case aboveThreshold && !r.Correct:
			fp++
		case !aboveThreshold && r.Correct:
			fn++
		}
		if r.Similarity <= 0 {
			logLossSum += zeroSimilarityPenalty
		} else {
			logLossSum += -math.Log(r.Similarity)
		}
	}

	report.Results = results
	if total > 0 {
		report.Accuracy = float64(correct) / float64(total)
		report.Perplexity = logLossSum / float64(total)
	}
	if tp+fp > 0 {
		report.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		report.Recall = float64(tp) / float64(tp+fn)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}
}

func (e *Evaluator) fail(ctx context.Context, report *models.TrainingReport, cause error) {
	slog.Error("evaluation failed", "report_id", report.ID, "error", cause)

	now := time.Now().UTC()
	report.Status = models.ReportStatusFailed
	report.Error = cause.Error()
	report.CompletedAt = &now

	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.reports.Update(updateCtx, report); err != nil {
		slog.Error("persist failed report", "report_id", report.ID, "error", err)
	}
}
