package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
)

const (
	// Examples requested per provider call. Total batches for a job is
	// ceil(target / DefaultBatchSize).
	DefaultBatchSize = 5

	// Extra generation attempts per batch when dedup leaves a shortfall.
	maxShortfallRetries = 3

	// Pause between batches so the external provider is not hammered.
	defaultBatchDelay = 1 * time.Second

	defaultTargetExamples = 50
	trainSplitRatio       = 0.8
)

// Runner drives a dataset generation job: batched generation, global and
// per-job deduplication, shortfall retries, progress tracking and the final
// train/test split. Batches within one job run strictly sequentially; the
// per-job fingerprint set must reflect all prior batches before the next
// dedup check.
type Runner struct {
	datasets   store.DatasetStore
	gen        BatchGenerator
	events     events.Publisher
	batchSize  int
	batchDelay time.Duration
}

func NewRunner(datasets store.DatasetStore, gen BatchGenerator, pub events.Publisher) *Runner {
	return &Runner{
		datasets:   datasets,
		gen:        gen,
		events:     pub,
		batchSize:  DefaultBatchSize,
		batchDelay: defaultBatchDelay,
	}
}

// WithBatchDelay overrides the inter-batch pause. Tests set it to zero.
func (r *Runner) WithBatchDelay(d time.Duration) *Runner {
	r.batchDelay = d
	return r
}

// Run executes the generation job for the dataset. Any failure, including a
// panic in generation code, lands the job in `failed`; the job is never left
// `processing` after Run returns.
func (r *Runner) Run(ctx context.Context, datasetID uuid.UUID) (err error) {
	ds, err := r.datasets.Get(ctx, datasetID)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if ds.GenerationStatus.Terminal() {
		slog.Info("generation job already terminal, skipping", "dataset_id", datasetID, "status", ds.GenerationStatus)
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("generation panicked: %v", rec)
		}
		if err != nil {
			r.fail(ctx, ds, err)
		}
	}()

	return r.run(ctx, ds)
}

func (r *Runner) run(ctx context.Context, ds *models.Dataset) error {
	target, ok := ds.MetaInt(models.MetaTargetExamples)
	if !ok || target <= 0 {
		target = defaultTargetExamples
	}
	batchSize := r.batchSize
	if bs, ok := ds.MetaInt(models.MetaBatchSize); ok && bs > 0 {
		batchSize = bs
	}
	totalBatches := (target + batchSize - 1) / batchSize

	global, err := LoadGlobalIndex(ctx, r.datasets)
	if err != nil {
		return err
	}
	jobSeen := NewIndex()

	ds.GenerationStatus = models.GenerationStatusProcessing
	ds.TotalBatches = totalBatches
	ds.CurrentBatch = 0
	ds.Progress = 0
	ds.SetMeta(models.MetaBatchSize, batchSize)
	if err := r.datasets.Update(ctx, ds); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	r.events.Publish(ctx, events.DatasetUpdated, ds)

	description := ds.Description
	if src, ok := ds.Metadata[models.MetaSourceMaterial].(string); ok && src != "" {
		if len(src) > 2000 {
			src = src[:2000]
		}
		description += "\n\nGround the examples in this source material:\n" + src
	}

	var accepted []models.TrainingExample
	duplicates := 0

	for batch := 1; batch <= totalBatches; batch++ {
		want := batchSize
		if remaining := target - len(accepted); remaining < want {
			want = remaining
		}
		if want > 0 {
			got, dups := r.fillBatch(ctx, ds.Title, description, ds.Type, want, global, jobSeen)
			accepted = append(accepted, got...)
			duplicates += dups
		}

		ds.CurrentBatch = batch
		ds.GeneratedCount = len(accepted)
		ds.Progress = batch * 100 / totalBatches
		if err := r.datasets.Update(ctx, ds); err != nil {
			return fmt.Errorf("persist batch %d: %w", batch, err)
		}
		r.events.Publish(ctx, events.DatasetProgress, ds)

		if batch < totalBatches && r.batchDelay > 0 {
			select {
			case <-time.After(r.batchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	valid := accepted[:0]
	invalid := 0
	for _, ex := range accepted {
		if line, err := ex.MarshalLine(); err == nil && len(line) > 0 && ex.Valid() {
			valid = append(valid, ex)
		} else {
			invalid++
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("generation produced no valid examples after %d batches", totalBatches)
	}

	trainCount := int(trainSplitRatio * float64(len(valid)))
	training, test := valid[:trainCount], valid[trainCount:]

	full, err := EncodeJSONL(valid)
	if err != nil {
		return fmt.Errorf("serialize content: %w", err)
	}
	trainContent, err := EncodeJSONL(training)
	if err != nil {
		return fmt.Errorf("serialize training content: %w", err)
	}
	testContent, err := EncodeJSONL(test)
	if err != nil {
		return fmt.Errorf("serialize test content: %w", err)
	}
	// Round-trip check: every line must independently parse back.
	for name, content := range map[string]string{"content": full, "training_content": trainContent, "test_content": testContent} {
		if _, err := DecodeJSONL(content); err != nil {
			return fmt.Errorf("round-trip check failed for %s: %w", name, err)
		}
	}

	now := time.Now().UTC()
	ds.Content = &full
	ds.TrainingContent = &trainContent
	ds.TestContent = &testContent
	ds.NumExamples = len(valid)
	ds.TrainingExamplesCount = len(training)
	ds.TestExamplesCount = len(test)
	ds.GeneratedCount = len(valid)
	ds.GenerationStatus = models.GenerationStatusCompleted
	ds.Progress = 100
	ds.CompletedAt = &now
	ds.SetMeta(models.MetaDuplicatesRemoved, duplicates)
	ds.SetMeta(models.MetaInvalidRemoved, invalid)

	if err := r.datasets.Update(ctx, ds); err != nil {
		return fmt.Errorf("commit completed dataset: %w", err)
	}
	r.events.Publish(ctx, events.DatasetUpdated, ds)

	slog.Info("generation job completed",
		"dataset_id", ds.ID, "examples", ds.NumExamples,
		"duplicates_removed", duplicates, "invalid_removed", invalid)
	return nil
}

// fillBatch generates up to want unique examples, retrying the shortfall a
// bounded number of times. Returns the accepted examples and the number of
// duplicates rejected.
func (r *Runner) fillBatch(ctx context.Context, title, description string, dsType models.DatasetType, want int, global, jobSeen *Index) ([]models.TrainingExample, int) {
	var accepted []models.TrainingExample
	duplicates := 0

	for attempt := 0; attempt <= maxShortfallRetries && len(accepted) < want; attempt++ {
		need := want - len(accepted)
		batch := r.gen.GenerateBatch(ctx, title, description, need, dsType)
		for _, ex := range batch {
			fp := Fingerprint(ex)
			if global.Has(fp) || jobSeen.Has(fp) {
				duplicates++
				continue
			}
			jobSeen.Add(fp)
			accepted = append(accepted, ex)
			if len(accepted) == want {
				break
			}
		}
	}
	return accepted, duplicates
}

func (r *Runner) fail(ctx context.Context, ds *models.Dataset, cause error) {
	slog.Error("generation job failed", "dataset_id", ds.ID, "error", cause)

	ds.GenerationStatus = models.GenerationStatusFailed
	ds.SetMeta(models.MetaError, cause.Error())
	now := time.Now().UTC()
	ds.CompletedAt = &now

	// Best effort with a detached context: the failure must be recorded
	// even when the run context is already cancelled.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.datasets.Update(updateCtx, ds); err != nil {
		slog.Error("persist failed generation job", "dataset_id", ds.ID, "error", err)
	}
	r.events.Publish(updateCtx, events.DatasetUpdated, ds)
}
