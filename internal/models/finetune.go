package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus mirrors the external provider's fine-tuning job lifecycle.
// Local status advances monotonically and never regresses.
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusValidatingFiles JobStatus = "validating_files"
	JobStatusRunning         JobStatus = "running"
	JobStatusSucceeded       JobStatus = "succeeded"
	JobStatusFailed          JobStatus = "failed"
	JobStatusCancelled       JobStatus = "cancelled"
)

// Terminal reports whether no further automatic transition occurs.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Rank orders statuses along the pending -> validating_files -> running ->
// terminal progression. Terminal states share the highest rank.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusValidatingFiles:
		return 1
	case JobStatusRunning:
		return 2
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return 3
	}
	return -1
}

// JobError carries the provider's structured error detail.
type JobError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" {
		return e.Type + ": " + e.Message
	}
	return e.Message
}

// AutoNumber is a hyperparameter that is either an explicit number or the
// provider-chosen default "auto". The zero value is "auto".
type AutoNumber struct {
	Value float64
	Set   bool
}

func Auto() AutoNumber            { return AutoNumber{} }
func Number(v float64) AutoNumber { return AutoNumber{Value: v, Set: true} }
func (a AutoNumber) IsAuto() bool { return !a.Set }

func (a AutoNumber) MarshalJSON() ([]byte, error) {
	if !a.Set {
		return []byte(`"auto"`), nil
	}
	return json.Marshal(a.Value)
}

func (a *AutoNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "auto" || s == "" {
			*a = AutoNumber{}
			return nil
		}
		return fmt.Errorf("invalid hyperparameter %q: expected number or \"auto\"", s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid hyperparameter: %w", err)
	}
	*a = AutoNumber{Value: v, Set: true}
	return nil
}

// ProviderValue renders the wire value: the concrete number, or "auto".
func (a AutoNumber) ProviderValue() any {
	if !a.Set {
		return "auto"
	}
	if a.Value == float64(int(a.Value)) {
		return int(a.Value)
	}
	return a.Value
}

// Hyperparameters for a fine-tuning run. Each field defaults to "auto",
// letting the provider pick.
type Hyperparameters struct {
	NEpochs                AutoNumber `json:"n_epochs"`
	BatchSize              AutoNumber `json:"batch_size"`
	LearningRateMultiplier AutoNumber `json:"learning_rate_multiplier"`
}

// TrainingMethod values carried in job metadata.
const (
	TrainingMethodSupervised = "supervised"
	TrainingMethodDPO        = "dpo"
)

// JobMetadata is embedded descriptive detail recorded at submission time.
type JobMetadata struct {
	TrainingMethod     string      `json:"training_method,omitempty"`
	ModelType          DatasetType `json:"model_type,omitempty"`
	SecondaryModelType DatasetType `json:"secondary_model_type,omitempty"`
	BaseModel          string      `json:"base_model,omitempty"`
	Suffix             string      `json:"suffix,omitempty"`
	ValidationFileID   string      `json:"validation_file_id,omitempty"`
	DatasetID          *uuid.UUID  `json:"dataset_id,omitempty"`
}

// FineTuneJob tracks one training run against the external provider.
// ParentJobID links enhancement chains: a child re-trains from its parent's
// resulting model, and a succeeding descendant's model id is propagated up
// to its direct parent.
type FineTuneJob struct {
	ID               uuid.UUID       `json:"id"`
	BotID            uuid.UUID       `json:"bot_id"`
	TrainingFileID   string          `json:"training_file_id,omitempty"`
	ValidationFileID string          `json:"validation_file_id,omitempty"`
	ProviderJobID    *string         `json:"provider_job_id,omitempty"`
	Status           JobStatus       `json:"status"`
	FineTunedModelID string          `json:"fine_tuned_model_id,omitempty"`
	Error            *JobError       `json:"error,omitempty"`
	Hyperparameters  Hyperparameters `json:"hyperparameters"`
	Metadata         JobMetadata     `json:"metadata"`

	ValidationStartedAt *time.Time `json:"validation_started_at,omitempty"`
	ValidationEndedAt   *time.Time `json:"validation_ended_at,omitempty"`
	TrainingStartedAt   *time.Time `json:"training_started_at,omitempty"`
	TrainingEndedAt     *time.Time `json:"training_ended_at,omitempty"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`

	ValidationDurationSec int64 `json:"validation_duration_sec,omitempty"`
	TrainingDurationSec   int64 `json:"training_duration_sec,omitempty"`
	TotalDurationSec      int64 `json:"total_duration_sec,omitempty"`

	TrainedTokens    int     `json:"trained_tokens,omitempty"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`

	ParentJobID *uuid.UUID  `json:"parent_job_id,omitempty"`
	ChildJobIDs []uuid.UUID `json:"child_job_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
