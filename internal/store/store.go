// Package store defines the record-store contracts the pipeline core
// persists through, plus their Postgres implementations. Consumers depend
// on the interfaces so tests can substitute in-memory fakes.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DatasetFilter narrows dataset queries. Nil fields are ignored.
type DatasetFilter struct {
	OwnerID    *uuid.UUID
	Status     *models.GenerationStatus
	HasContent *bool
	Limit      int
	Offset     int
}

type DatasetStore interface {
	Create(ctx context.Context, d *models.Dataset) error
	Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	Update(ctx context.Context, d *models.Dataset) error
	Delete(ctx context.Context, id uuid.UUID) error
	Query(ctx context.Context, f DatasetFilter) ([]models.Dataset, error)
}

type BotStore interface {
	Create(ctx context.Context, b *models.Bot) error
	Get(ctx context.Context, id uuid.UUID) (*models.Bot, error)
	Update(ctx context.Context, b *models.Bot) error
	Query(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]models.Bot, error)
}

// JobFilter narrows fine-tune job queries. Nil fields are ignored.
// OwnerID scopes through the owning bot.
type JobFilter struct {
	OwnerID     *uuid.UUID
	BotID       *uuid.UUID
	ParentJobID *uuid.UUID
	Statuses    []models.JobStatus
	Limit       int
	Offset      int
}

type FineTuneJobStore interface {
	Create(ctx context.Context, j *models.FineTuneJob) error
	Get(ctx context.Context, id uuid.UUID) (*models.FineTuneJob, error)
	Update(ctx context.Context, j *models.FineTuneJob) error
	Delete(ctx context.Context, id uuid.UUID) error
	Query(ctx context.Context, f JobFilter) ([]models.FineTuneJob, error)
}

// ReportFilter narrows training report queries. Nil fields are ignored.
// OwnerID scopes through the owning bot.
type ReportFilter struct {
	OwnerID   *uuid.UUID
	JobID     *uuid.UUID
	BotID     *uuid.UUID
	DatasetID *uuid.UUID
	Limit     int
	Offset    int
}

type TrainingReportStore interface {
	Create(ctx context.Context, r *models.TrainingReport) error
	Get(ctx context.Context, id uuid.UUID) (*models.TrainingReport, error)
	Update(ctx context.Context, r *models.TrainingReport) error
	Query(ctx context.Context, f ReportFilter) ([]models.TrainingReport, error)
}

// Stores bundles the per-collection stores for wiring.
type Stores struct {
	Datasets DatasetStore
	Bots     BotStore
	Jobs     FineTuneJobStore
	Reports  TrainingReportStore
}
