package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus tracks a model evaluation run. A report is created `testing`
// and is never mutated after it reaches a terminal state.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusTesting   ReportStatus = "testing"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// TestCaseResult is the outcome of scoring one held-out example.
type TestCaseResult struct {
	Input      string  `json:"input"`
	Expected   string  `json:"expected"`
	Predicted  string  `json:"predicted"`
	Correct    bool    `json:"correct"`
	Similarity float64 `json:"similarity"`
}

// TrainingReport aggregates evaluation metrics for a fine-tuned model.
type TrainingReport struct {
	ID        uuid.UUID  `json:"id"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
	BotID     *uuid.UUID `json:"bot_id,omitempty"`
	DatasetID *uuid.UUID `json:"dataset_id,omitempty"`

	TrainingExamplesCount int `json:"training_examples_count"`
	TestExamplesCount     int `json:"test_examples_count"`

	Accuracy   float64 `json:"accuracy"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
	Perplexity float64 `json:"perplexity"`

	Results []TestCaseResult `json:"results,omitempty"`

	Status ReportStatus `json:"status"`
	Error  string       `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
