package models

import (
	"time"

	"github.com/google/uuid"
)

// DatasetType selects the tone and shape of generated conversations.
type DatasetType string

const (
	DatasetTypeChat    DatasetType = "chat"
	DatasetTypeCalling DatasetType = "calling"
	DatasetTypeVoice   DatasetType = "voice"
	DatasetTypeAll     DatasetType = "all"
)

func (t DatasetType) Valid() bool {
	switch t {
	case DatasetTypeChat, DatasetTypeCalling, DatasetTypeVoice, DatasetTypeAll:
		return true
	}
	return false
}

// GenerationStatus tracks a dataset that doubles as a generation job.
// A hand-authored dataset that was never a generation job has no status.
type GenerationStatus string

const (
	GenerationStatusNone       GenerationStatus = ""
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Terminal reports whether the generation job can no longer transition.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// Metadata keys carried on datasets.
const (
	MetaTargetExamples    = "target_examples"
	MetaBatchSize         = "batch_size"
	MetaEnhancementJobID  = "enhancement_job_id"
	MetaDuplicatesRemoved = "duplicates_removed"
	MetaInvalidRemoved    = "invalid_removed"
	MetaSourceMaterial    = "source_material"
	MetaError             = "error"
)

// Dataset holds labeled training data. While generation is in flight the
// same record carries the job's progress; content columns stay null until
// the job completes.
type Dataset struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        DatasetType `json:"type"`

	Content         *string `json:"content,omitempty"`
	TrainingContent *string `json:"training_content,omitempty"`
	TestContent     *string `json:"test_content,omitempty"`

	NumExamples           int `json:"num_examples"`
	TrainingExamplesCount int `json:"training_examples_count"`
	TestExamplesCount     int `json:"test_examples_count"`

	GenerationStatus GenerationStatus `json:"generation_status,omitempty"`
	Progress         int              `json:"progress"`
	CurrentBatch     int              `json:"current_batch"`
	TotalBatches     int              `json:"total_batches"`
	GeneratedCount   int              `json:"generated_count"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MetaInt reads an integer metadata value, tolerating the float64 that
// JSON round-tripping produces.
func (d *Dataset) MetaInt(key string) (int, bool) {
	if d.Metadata == nil {
		return 0, false
	}
	switch v := d.Metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// SetMeta writes a metadata value, allocating the map on first use.
func (d *Dataset) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = value
}
