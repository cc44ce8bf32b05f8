package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
)

// GenerateEnqueuer is the slice of the task queue the service needs.
type GenerateEnqueuer interface {
	EnqueueDatasetGenerate(payload queue.DatasetGeneratePayload) error
}

// Service creates and manages datasets; the long-running generation itself
// happens in the worker via Runner.
type Service struct {
	datasets store.DatasetStore
	events   events.Publisher
	queue    GenerateEnqueuer
}

func NewService(datasets store.DatasetStore, pub events.Publisher, q GenerateEnqueuer) *Service {
	return &Service{datasets: datasets, events: pub, queue: q}
}

type CreateGenerationJobRequest struct {
	OwnerID          uuid.UUID          `json:"-"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Type             models.DatasetType `json:"type"`
	TargetExamples   int                `json:"target_examples"`
	BatchSize        int                `json:"batch_size,omitempty"`
	EnhancementJobID *uuid.UUID         `json:"enhancement_job_id,omitempty"`
}

// CreateGenerationJob persists a pending generation job and hands it to
// the worker. The call returns immediately; progress is observed via
// polling and published events.
func (s *Service) CreateGenerationJob(ctx context.Context, req CreateGenerationJobRequest) (*models.Dataset, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid dataset type %q", req.Type)
	}
	if req.TargetExamples <= 0 {
		return nil, fmt.Errorf("target_examples must be positive")
	}

	ds := &models.Dataset{
		ID:               uuid.New(),
		OwnerID:          req.OwnerID,
		Title:            req.Title,
		Description:      req.Description,
		Type:             req.Type,
		GenerationStatus: models.GenerationStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	ds.SetMeta(models.MetaTargetExamples, req.TargetExamples)
	if req.BatchSize > 0 {
		ds.SetMeta(models.MetaBatchSize, req.BatchSize)
	}
	if req.EnhancementJobID != nil {
		ds.SetMeta(models.MetaEnhancementJobID, req.EnhancementJobID.String())
	}

	if err := s.datasets.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	s.events.Publish(ctx, events.DatasetCreated, ds)

	if err := s.queue.EnqueueDatasetGenerate(queue.DatasetGeneratePayload{DatasetID: ds.ID.String()}); err != nil {
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}
	return ds, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	return s.datasets.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f store.DatasetFilter) ([]models.Dataset, error) {
	return s.datasets.Query(ctx, f)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ds, err := s.datasets.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, events.DatasetDeleted, ds)
	return nil
}
