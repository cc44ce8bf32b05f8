package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/queue"
)

// DatasetWorker executes dataset generation jobs.
type DatasetWorker struct {
	runner *dataset.Runner
}

func NewDatasetWorker(runner *dataset.Runner) *DatasetWorker {
	return &DatasetWorker{runner: runner}
}

func (w *DatasetWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DatasetGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	datasetID, err := uuid.Parse(payload.DatasetID)
	if err != nil {
		return fmt.Errorf("parse dataset ID: %w", err)
	}

	slog.Info("running generation job", "dataset_id", datasetID)
	if err := w.runner.Run(ctx, datasetID); err != nil {
		// The runner already recorded the terminal failure; returning
		// the error here would only trigger a pointless queue retry.
		slog.Error("generation job failed", "dataset_id", datasetID, "error", err)
		return nil
	}
	slog.Info("generation job finished", "dataset_id", datasetID)
	return nil
}
