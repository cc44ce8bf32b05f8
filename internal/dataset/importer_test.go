package dataset

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
)

func TestImportJSONLStoresValidatedContent(t *testing.T) {
	st := newFakeDatasetStore()
	imp := NewImporter(st, events.Nop{})

	jsonl, err := EncodeJSONL(uniqueExamples("imp", 3))
	require.NoError(t, err)

	ds, err := imp.ImportJSONL(context.Background(), ImportRequest{
		OwnerID: uuid.New(),
		Title:   "hand-authored",
		Type:    models.DatasetTypeChat,
		JSONL:   []byte(jsonl),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.NumExamples)
	assert.Equal(t, models.GenerationStatusNone, ds.GenerationStatus)
	assert.Nil(t, ds.TrainingContent)
	assert.Nil(t, ds.TestContent)
	require.NotNil(t, ds.Content)

	stored, err := st.Get(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, *ds.Content, *stored.Content)
}

func TestImportJSONLRejectsMalformedFile(t *testing.T) {
	imp := NewImporter(newFakeDatasetStore(), events.Nop{})

	_, err := imp.ImportJSONL(context.Background(), ImportRequest{
		Title: "bad",
		Type:  models.DatasetTypeChat,
		JSONL: []byte("not jsonl"),
	})
	require.Error(t, err)

	_, err = imp.ImportJSONL(context.Background(), ImportRequest{
		Title: "empty",
		Type:  models.DatasetTypeChat,
		JSONL: nil,
	})
	require.Error(t, err)
}

func TestAttachSourceMaterialStoresExtractedText(t *testing.T) {
	st := newFakeDatasetStore()
	ds := pendingDataset(5)
	st.add(ds)
	imp := NewImporter(st, events.Nop{})

	got, err := imp.AttachSourceMaterial(context.Background(), ds.ID, "notes.txt", []byte("  product FAQ text  "))
	require.NoError(t, err)
	assert.Equal(t, "product FAQ text", got.Metadata[models.MetaSourceMaterial])
}

func TestAttachSourceMaterialRejectsFinishedDataset(t *testing.T) {
	st := newFakeDatasetStore()
	ds := pendingDataset(5)
	ds.GenerationStatus = models.GenerationStatusCompleted
	st.add(ds)
	imp := NewImporter(st, events.Nop{})

	_, err := imp.AttachSourceMaterial(context.Background(), ds.ID, "notes.txt", []byte("too late"))
	require.Error(t, err)
}

func TestAttachSourceMaterialRejectsUnknownType(t *testing.T) {
	st := newFakeDatasetStore()
	ds := pendingDataset(5)
	st.add(ds)
	imp := NewImporter(st, events.Nop{})

	_, err := imp.AttachSourceMaterial(context.Background(), ds.ID, "slides.pptx", []byte{0x50, 0x4b})
	require.Error(t, err)
}
