package dataset

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
	"github.com/botforgehq/botforge/pkg/textextract"
)

// Importer ingests hand-authored datasets and source material for
// generation prompts.
type Importer struct {
	datasets store.DatasetStore
	events   events.Publisher
}

func NewImporter(datasets store.DatasetStore, pub events.Publisher) *Importer {
	return &Importer{datasets: datasets, events: pub}
}

type ImportRequest struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Type        models.DatasetType
	JSONL       []byte
}

// ImportJSONL validates and stores a hand-authored JSONL dataset. The
// dataset never was a generation job, so it carries no generation status
// and no train/test split.
func (i *Importer) ImportJSONL(ctx context.Context, req ImportRequest) (*models.Dataset, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid dataset type %q", req.Type)
	}

	examples, err := DecodeJSONL(string(req.JSONL))
	if err != nil {
		return nil, fmt.Errorf("invalid training file: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	content, err := EncodeJSONL(examples)
	if err != nil {
		return nil, fmt.Errorf("serialize content: %w", err)
	}

	ds := &models.Dataset{
		ID:          uuid.New(),
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Content:     &content,
		NumExamples: len(examples),
		CreatedAt:   time.Now().UTC(),
	}
	if err := i.datasets.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	i.events.Publish(ctx, events.DatasetCreated, ds)
	return ds, nil
}

// AttachSourceMaterial extracts text from an uploaded document (PDF or
// plain text) and stores it in dataset metadata, where the batch generator
// picks it up as additional prompt context.
func (i *Importer) AttachSourceMaterial(ctx context.Context, datasetID uuid.UUID, fileName string, data []byte) (*models.Dataset, error) {
	ds, err := i.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if ds.GenerationStatus.Terminal() || ds.Content != nil {
		return nil, fmt.Errorf("dataset %s is finished; source material can no longer influence it", datasetID)
	}

	text, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), fileName)
	if err != nil {
		return nil, fmt.Errorf("extract source material: %w", err)
	}

	ds.SetMeta(models.MetaSourceMaterial, text)
	if err := i.datasets.Update(ctx, ds); err != nil {
		return nil, fmt.Errorf("update dataset: %w", err)
	}
	i.events.Publish(ctx, events.DatasetUpdated, ds)
	return ds, nil
}
