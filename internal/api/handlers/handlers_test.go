package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
)

type fakeDatasetStore struct {
	items map[uuid.UUID]*models.Dataset
}

func (f *fakeDatasetStore) Create(ctx context.Context, d *models.Dataset) error {
	cp := *d
	f.items[d.ID] = &cp
	return nil
}

func (f *fakeDatasetStore) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	d, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDatasetStore) Update(ctx context.Context, d *models.Dataset) error {
	if _, ok := f.items[d.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *d
	f.items[d.ID] = &cp
	return nil
}

func (f *fakeDatasetStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeDatasetStore) Query(ctx context.Context, filter store.DatasetFilter) ([]models.Dataset, error) {
	return nil, nil
}

type fakeBotStore struct {
	items map[uuid.UUID]*models.Bot
}

func (f *fakeBotStore) Create(ctx context.Context, b *models.Bot) error {
	cp := *b
	f.items[b.ID] = &cp
	return nil
}

func (f *fakeBotStore) Get(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	b, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBotStore) Update(ctx context.Context, b *models.Bot) error { return nil }

func (f *fakeBotStore) Query(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]models.Bot, error) {
	return nil, nil
}

type fakeReportStore struct {
	items map[uuid.UUID]*models.TrainingReport
}

func (f *fakeReportStore) Create(ctx context.Context, r *models.TrainingReport) error {
	cp := *r
	f.items[r.ID] = &cp
	return nil
}

func (f *fakeReportStore) Get(ctx context.Context, id uuid.UUID) (*models.TrainingReport, error) {
	r, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReportStore) Update(ctx context.Context, r *models.TrainingReport) error { return nil }

func (f *fakeReportStore) Query(ctx context.Context, filter store.ReportFilter) ([]models.TrainingReport, error) {
	return nil, nil
}

type nopEnqueuer struct{}

func (nopEnqueuer) EnqueueDatasetGenerate(queue.DatasetGeneratePayload) error { return nil }

func asOwner(r *http.Request, ownerID uuid.UUID) *http.Request {
	return r.WithContext(auth.WithOwner(r.Context(), ownerID))
}

func TestDatasetGetScopedToOwner(t *testing.T) {
	owner := uuid.New()
	ds := &models.Dataset{ID: uuid.New(), OwnerID: owner, Title: "mine"}
	datasets := &fakeDatasetStore{items: map[uuid.UUID]*models.Dataset{ds.ID: ds}}
	svc := dataset.NewService(datasets, events.Nop{}, nopEnqueuer{})
	h := NewDatasetHandler(svc, dataset.NewImporter(datasets, events.Nop{}))

	r := chi.NewRouter()
	r.Get("/datasets/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/datasets/"+ds.ID.String(), nil), owner))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/datasets/"+ds.ID.String(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDatasetDeleteScopedToOwner(t *testing.T) {
	owner := uuid.New()
	ds := &models.Dataset{ID: uuid.New(), OwnerID: owner, Title: "mine"}
	datasets := &fakeDatasetStore{items: map[uuid.UUID]*models.Dataset{ds.ID: ds}}
	svc := dataset.NewService(datasets, events.Nop{}, nopEnqueuer{})
	h := NewDatasetHandler(svc, dataset.NewImporter(datasets, events.Nop{}))

	r := chi.NewRouter()
	r.Delete("/datasets/{id}", h.Delete)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodDelete, "/datasets/"+ds.ID.String(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := datasets.Get(context.Background(), ds.ID)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodDelete, "/datasets/"+ds.ID.String(), nil), owner))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotGetScopedToOwner(t *testing.T) {
	owner := uuid.New()
	bot := &models.Bot{ID: uuid.New(), OwnerID: owner, Name: "helper", Type: models.DatasetTypeChat}
	bots := &fakeBotStore{items: map[uuid.UUID]*models.Bot{bot.ID: bot}}
	h := NewBotHandler(bots)

	r := chi.NewRouter()
	r.Get("/bots/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/bots/"+bot.ID.String(), nil), owner))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/bots/"+bot.ID.String(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportGetScopedToOwner(t *testing.T) {
	owner := uuid.New()
	bot := &models.Bot{ID: uuid.New(), OwnerID: owner, Name: "helper", Type: models.DatasetTypeChat}
	bots := &fakeBotStore{items: map[uuid.UUID]*models.Bot{bot.ID: bot}}
	report := &models.TrainingReport{ID: uuid.New(), BotID: &bot.ID}
	reports := &fakeReportStore{items: map[uuid.UUID]*models.TrainingReport{report.ID: report}}
	h := NewReportHandler(reports, bots)

	r := chi.NewRouter()
	r.Get("/reports/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/reports/"+report.ID.String(), nil), owner))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asOwner(httptest.NewRequest(http.MethodGet, "/reports/"+report.ID.String(), nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
