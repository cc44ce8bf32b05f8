// Package finetune manages the lifecycle of fine-tuning jobs against the
// external provider: submission, status reconciliation, derived bot status,
// enhancement chains and cancellation.
package finetune

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/provider"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
	"github.com/botforgehq/botforge/pkg/tokenizer"
)

// Enqueuer is the slice of the task queue the service needs.
type Enqueuer interface {
	EnqueueFinetunePoll(payload queue.FinetunePollPayload) error
	EnqueueReportEvaluate(payload queue.ReportEvaluatePayload) error
}

type Service struct {
	jobs     store.FineTuneJobStore
	bots     store.BotStore
	datasets store.DatasetStore
	provider provider.Client
	events   events.Publisher
	queue    Enqueuer
}

func NewService(s *store.Stores, p provider.Client, pub events.Publisher, q Enqueuer) *Service {
	return &Service{
		jobs:     s.Jobs,
		bots:     s.Bots,
		datasets: s.Datasets,
		provider: p,
		events:   pub,
		queue:    q,
	}
}

// defaultBaseModels resolves a base model from the bot type when neither
// the request nor the bot carries one.
var defaultBaseModels = map[models.DatasetType]string{
	models.DatasetTypeChat:    "gpt-3.5-turbo",
	models.DatasetTypeCalling: "gpt-4o-mini",
	models.DatasetTypeVoice:   "gpt-4o-mini",
	models.DatasetTypeAll:     "gpt-3.5-turbo",
}

type CreateJobRequest struct {
	BotID              uuid.UUID              `json:"bot_id"`
	DatasetID          uuid.UUID              `json:"dataset_id"`
	BaseModel          string                 `json:"base_model,omitempty"`
	Suffix             string                 `json:"suffix,omitempty"`
	TrainingMethod     string                 `json:"training_method,omitempty"`
	SecondaryModelType models.DatasetType     `json:"secondary_model_type,omitempty"`
	Hyperparameters    models.Hyperparameters `json:"hyperparameters"`
	ParentJobID        *uuid.UUID             `json:"parent_job_id,omitempty"`
}

// CreateJob validates the request, persists a pending job, marks the bot
// training and submits to the external provider. Submission failure is
// synchronous: the job lands in `failed`, the bot reverts to `inactive`
// and the error is returned to the caller.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*models.FineTuneJob, error) {
	bot, err := s.bots.Get(ctx, req.BotID)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", req.BotID, err)
	}

	baseModel := req.BaseModel
	if req.ParentJobID != nil {
		parent, err := s.jobs.Get(ctx, *req.ParentJobID)
		if err != nil {
			return nil, fmt.Errorf("parent job %s: %w", *req.ParentJobID, err)
		}
		if parent.Status != models.JobStatusSucceeded || parent.FineTunedModelID == "" {
			return nil, fmt.Errorf("parent job %s has not succeeded; enhancement requires its fine-tuned model", parent.ID)
		}
		if baseModel == "" {
			baseModel = parent.FineTunedModelID
		}
	}
	if baseModel == "" {
		baseModel = bot.Model
	}
	if baseModel == "" {
		baseModel = defaultBaseModels[bot.Type]
	}
	if baseModel == "" {
		return nil, fmt.Errorf("no base model resolvable for bot type %q", bot.Type)
	}

	ds, err := s.datasets.Get(ctx, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", req.DatasetID, err)
	}
	trainingContent := ds.TrainingContent
	if trainingContent == nil {
		trainingContent = ds.Content
	}
	if trainingContent == nil || *trainingContent == "" {
		return nil, fmt.Errorf("dataset %s has no training content", ds.ID)
	}

	method := req.TrainingMethod
	if method == "" {
		method = models.TrainingMethodSupervised
	}

	dsID := ds.ID
	job := &models.FineTuneJob{
		ID:              uuid.New(),
		BotID:           bot.ID,
		Status:          models.JobStatusPending,
		Hyperparameters: req.Hyperparameters,
		Metadata: models.JobMetadata{
			TrainingMethod:     method,
			ModelType:          bot.Type,
			SecondaryModelType: req.SecondaryModelType,
			BaseModel:          baseModel,
			Suffix:             req.Suffix,
			DatasetID:          &dsID,
		},
		ParentJobID: req.ParentJobID,
		CreatedAt:   time.Now().UTC(),
	}

	// Best-effort pre-submission cost preview; never blocks submission.
	estTokens := tokenizer.EstimateTokens(*trainingContent)
	job.EstimatedCostUSD = provider.TrainingCost(baseModel, estTokens)

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.setBotStatus(ctx, bot, models.BotStatusTraining, "")
	s.events.Publish(ctx, events.FineTuneJobCreated, job)

	if err := s.submit(ctx, job, bot, ds, *trainingContent); err != nil {
		return job, err
	}

	if s.queue != nil {
		if err := s.queue.EnqueueFinetunePoll(queue.FinetunePollPayload{JobID: job.ID.String()}); err != nil {
			slog.Error("enqueue status poll", "job_id", job.ID, "error", err)
		}
	}
	return job, nil
}

// submit uploads the training (and optional validation) files and starts
// the provider job. Any failure marks the job failed and reverts the bot.
func (s *Service) submit(ctx context.Context, job *models.FineTuneJob, bot *models.Bot, ds *models.Dataset, trainingContent string) error {
	fileID, err := s.provider.CreateFile(ctx, fmt.Sprintf("%s-training.jsonl", job.ID), []byte(trainingContent))
	if err != nil {
		return s.failSubmission(ctx, job, bot, err)
	}
	job.TrainingFileID = fileID

	if ds.TestContent != nil && *ds.TestContent != "" {
		valID, err := s.provider.CreateFile(ctx, fmt.Sprintf("%s-validation.jsonl", job.ID), []byte(*ds.TestContent))
		if err != nil {
			return s.failSubmission(ctx, job, bot, err)
		}
		job.ValidationFileID = valID
		job.Metadata.ValidationFileID = valID
	}

	remote, err := s.provider.SubmitJob(ctx, provider.SubmitJobRequest{
		TrainingFileID:   job.TrainingFileID,
		ValidationFileID: job.ValidationFileID,
		BaseModel:        job.Metadata.BaseModel,
		Suffix:           job.Metadata.Suffix,
		Hyperparameters:  job.Hyperparameters,
	})
	if err != nil {
		return s.failSubmission(ctx, job, bot, err)
	}

	job.ProviderJobID = &remote.ID
	if remote.Status.Rank() > job.Status.Rank() {
		job.Status = remote.Status
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persist submitted job: %w", err)
	}
	s.events.Publish(ctx, events.FineTuneJobUpdated, job)
	return nil
}

func (s *Service) failSubmission(ctx context.Context, job *models.FineTuneJob, bot *models.Bot, cause error) error {
	slog.Error("fine-tune submission failed", "job_id", job.ID, "error", cause)

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.Error = provider.APIErrorDetail(cause)
	job.FinishedAt = &now
	if err := s.jobs.Update(ctx, job); err != nil {
		slog.Error("persist failed job", "job_id", job.ID, "error", err)
	}
	s.setBotStatus(ctx, bot, models.BotStatusInactive, "")
	s.events.Publish(ctx, events.FineTuneJobUpdated, job)

	return fmt.Errorf("submit fine-tune job: %w", cause)
}

// SyncStatus reconciles local state against the provider. It is idempotent
// modulo first-observed phase timestamps and safe to call repeatedly and
// concurrently; local status never regresses.
func (s *Service) SyncStatus(ctx context.Context, jobID uuid.UUID) (*models.FineTuneJob, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProviderJobID == nil || job.Status.Terminal() {
		return job, nil
	}

	remote, err := s.provider.GetJob(ctx, *job.ProviderJobID)
	if err != nil {
		return nil, fmt.Errorf("fetch remote status: %w", err)
	}
	if remote.Status.Rank() < job.Status.Rank() {
		return job, nil
	}

	prev := job.Status
	now := time.Now().UTC()
	job.Status = remote.Status
	observePhases(job, remote, now)

	if remote.TrainedTokens > 0 {
		job.TrainedTokens = remote.TrainedTokens
		job.EstimatedCostUSD = provider.TrainingCost(job.Metadata.BaseModel, remote.TrainedTokens)
	}

	switch job.Status {
	case models.JobStatusSucceeded:
		job.FineTunedModelID = remote.FineTunedModelID
		if err := s.onSucceeded(ctx, job); err != nil {
			return nil, err
		}
	case models.JobStatusFailed:
		job.Error = remote.Error
		s.revertBot(ctx, job.BotID)
	case models.JobStatusCancelled:
		s.revertBot(ctx, job.BotID)
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist reconciled job: %w", err)
	}
	eventType := events.FineTuneJobUpdated
	if job.Status != prev && !job.Status.Terminal() {
		eventType = events.FineTuneJobProgress
	}
	s.events.Publish(ctx, eventType, job)
	return job, nil
}

// observePhases records phase-transition timestamps the first time each
// phase is seen and derives durations once terminal. A poll can first
// observe the job already terminal with a provider finish time in the
// past; unseen phase starts then anchor to that finish time, and derived
// durations are floored at zero.
func observePhases(job *models.FineTuneJob, remote *provider.Job, now time.Time) {
	finished := now
	if remote.FinishedAt != nil {
		finished = *remote.FinishedAt
	}
	mark := now
	if job.Status.Terminal() && finished.Before(now) {
		mark = finished
	}

	if job.Status.Rank() >= models.JobStatusValidatingFiles.Rank() && job.ValidationStartedAt == nil {
		t := mark
		job.ValidationStartedAt = &t
	}
	if job.Status.Rank() >= models.JobStatusRunning.Rank() {
		if job.ValidationEndedAt == nil && job.ValidationStartedAt != nil {
			t := mark
			job.ValidationEndedAt = &t
		}
		if job.TrainingStartedAt == nil {
			t := mark
			job.TrainingStartedAt = &t
		}
	}
	if !job.Status.Terminal() {
		return
	}

	job.FinishedAt = &finished
	if job.TrainingEndedAt == nil && job.TrainingStartedAt != nil {
		job.TrainingEndedAt = &finished
	}
	if job.ValidationEndedAt == nil && job.ValidationStartedAt != nil {
		job.ValidationEndedAt = &finished
	}

	if job.ValidationStartedAt != nil && job.ValidationEndedAt != nil {
		job.ValidationDurationSec = clampSeconds(job.ValidationEndedAt.Sub(*job.ValidationStartedAt))
	}
	if job.TrainingStartedAt != nil && job.TrainingEndedAt != nil {
		job.TrainingDurationSec = clampSeconds(job.TrainingEndedAt.Sub(*job.TrainingStartedAt))
	}
	job.TotalDurationSec = clampSeconds(finished.Sub(job.CreatedAt))
}

func clampSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

// onSucceeded flips the bot active on the new model, propagates the model
// id to the direct parent of an enhancement chain and triggers evaluation
// when a held-out test set is discoverable.
func (s *Service) onSucceeded(ctx context.Context, job *models.FineTuneJob) error {
	bot, err := s.bots.Get(ctx, job.BotID)
	if err != nil {
		return fmt.Errorf("bot %s: %w", job.BotID, err)
	}
	s.setBotStatus(ctx, bot, models.BotStatusActive, job.FineTunedModelID)

	if job.ParentJobID != nil {
		parent, err := s.jobs.Get(ctx, *job.ParentJobID)
		if err != nil {
			slog.Error("load parent job for model propagation", "job_id", job.ID, "parent_job_id", *job.ParentJobID, "error", err)
		} else {
			parent.FineTunedModelID = job.FineTunedModelID
			if err := s.jobs.Update(ctx, parent); err != nil {
				slog.Error("propagate model to parent job", "parent_job_id", parent.ID, "error", err)
			}
		}
	}

	if s.queue != nil && job.Metadata.DatasetID != nil {
		ds, err := s.datasets.Get(ctx, *job.Metadata.DatasetID)
		if err == nil && ds.TestContent != nil && *ds.TestContent != "" {
			if err := s.queue.EnqueueReportEvaluate(queue.ReportEvaluatePayload{JobID: job.ID.String()}); err != nil {
				slog.Error("enqueue evaluation", "job_id", job.ID, "error", err)
			}
		}
	}
	return nil
}

// Cancel asks the provider to stop the job. On provider rejection local
// state is left untouched and the rejection surfaced.
func (s *Service) Cancel(ctx context.Context, jobID uuid.UUID) (*models.FineTuneJob, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ProviderJobID == nil {
		return nil, fmt.Errorf("job %s has not been submitted to the provider", jobID)
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("job %s is already %s", jobID, job.Status)
	}

	if err := s.provider.CancelJob(ctx, *job.ProviderJobID); err != nil {
		return nil, fmt.Errorf("cancel at provider: %w", err)
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCancelled
	job.FinishedAt = &now
	job.TotalDurationSec = int64(now.Sub(job.CreatedAt).Seconds())
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist cancelled job: %w", err)
	}
	s.revertBot(ctx, job.BotID)
	s.events.Publish(ctx, events.FineTuneJobUpdated, job)
	return job, nil
}

// GetJob loads a job with its enhancement children materialized in
// creation order.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*models.FineTuneJob, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	id := job.ID
	children, err := s.jobs.Query(ctx, store.JobFilter{ParentJobID: &id})
	if err != nil {
		return nil, fmt.Errorf("query child jobs: %w", err)
	}
	job.ChildJobIDs = make([]uuid.UUID, 0, len(children))
	for _, c := range children {
		job.ChildJobIDs = append(job.ChildJobIDs, c.ID)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, f store.JobFilter) ([]models.FineTuneJob, error) {
	return s.jobs.Query(ctx, f)
}

// DeleteJob removes a terminal job's record. Active jobs must be
// cancelled first.
func (s *Service) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("job %s is %s; cancel it before deleting", jobID, job.Status)
	}
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.events.Publish(ctx, events.FineTuneJobDeleted, job)
	return nil
}

// AuthorizeOwner reports ErrNotFound unless the job's bot belongs to
// ownerID, so foreign jobs read as nonexistent.
func (s *Service) AuthorizeOwner(ctx context.Context, jobID, ownerID uuid.UUID) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	bot, err := s.bots.Get(ctx, job.BotID)
	if err != nil {
		return fmt.Errorf("bot %s: %w", job.BotID, err)
	}
	if bot.OwnerID != ownerID {
		return store.ErrNotFound
	}
	return nil
}

func (s *Service) setBotStatus(ctx context.Context, bot *models.Bot, status models.BotStatus, model string) {
	bot.Status = status
	if model != "" {
		bot.Model = model
	}
	if err := s.bots.Update(ctx, bot); err != nil {
		slog.Error("update bot status", "bot_id", bot.ID, "status", status, "error", err)
	}
}

func (s *Service) revertBot(ctx context.Context, botID uuid.UUID) {
	bot, err := s.bots.Get(ctx, botID)
	if err != nil {
		slog.Error("load bot for status revert", "bot_id", botID, "error", err)
		return
	}
	s.setBotStatus(ctx, bot, models.BotStatusInactive, "")
}
