package finetune

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botforgehq/botforge/internal/events"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/provider"
	"github.com/botforgehq/botforge/internal/queue"
	"github.com/botforgehq/botforge/internal/store"
)

type fakeBotStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Bot
}

func (f *fakeBotStore) Create(ctx context.Context, b *models.Bot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.items[b.ID] = &cp
	return nil
}

func (f *fakeBotStore) Get(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBotStore) Update(ctx context.Context, b *models.Bot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[b.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *b
	f.items[b.ID] = &cp
	return nil
}

func (f *fakeBotStore) Query(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]models.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Bot
	for _, b := range f.items {
		out = append(out, *b)
	}
	return out, nil
}

type fakeJobStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.FineTuneJob
}

func (f *fakeJobStore) Create(ctx context.Context, j *models.FineTuneJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.items[j.ID] = &cp
	return nil
}

func (f *fakeJobStore) Get(ctx context.Context, id uuid.UUID) (*models.FineTuneJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobStore) Update(ctx context.Context, j *models.FineTuneJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[j.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *j
	f.items[j.ID] = &cp
	return nil
}

func (f *fakeJobStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeJobStore) Query(ctx context.Context, filter store.JobFilter) ([]models.FineTuneJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.FineTuneJob
	for _, j := range f.items {
		if filter.BotID != nil && j.BotID != *filter.BotID {
			continue
		}
		if filter.ParentJobID != nil && (j.ParentJobID == nil || *j.ParentJobID != *filter.ParentJobID) {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

type fakeDatasetStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Dataset
}

func (f *fakeDatasetStore) Create(ctx context.Context, d *models.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.items[d.ID] = &cp
	return nil
}

func (f *fakeDatasetStore) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDatasetStore) Update(ctx context.Context, d *models.Dataset) error { return nil }
func (f *fakeDatasetStore) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (f *fakeDatasetStore) Query(ctx context.Context, filter store.DatasetFilter) ([]models.Dataset, error) {
	return nil, nil
}

// fakeProvider scripts the provider surface and records calls.
type fakeProvider struct {
	mu          sync.Mutex
	files       map[string][]byte
	fileSeq     int
	submitErr   error
	fileErr     error
	cancelErr   error
	remoteJobs  map[string]*provider.Job
	submitCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		files:      make(map[string][]byte),
		remoteJobs: make(map[string]*provider.Job),
	}
}

func (f *fakeProvider) CreateFile(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fileErr != nil {
		return "", f.fileErr
	}
	f.fileSeq++
	id := fmt.Sprintf("file-%d", f.fileSeq)
	f.files[id] = data
	return id, nil
}

func (f *fakeProvider) SubmitJob(ctx context.Context, req provider.SubmitJobRequest) (*provider.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	id := fmt.Sprintf("ftjob-%d", f.submitCalls)
	j := &provider.Job{ID: id, Status: models.JobStatusValidatingFiles}
	f.remoteJobs[id] = j
	return j, nil
}

func (f *fakeProvider) GetJob(ctx context.Context, providerJobID string) (*provider.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.remoteJobs[providerJobID]
	if !ok {
		return nil, errors.New("unknown provider job")
	}
	cp := *j
	return &cp, nil
}

func (f *fakeProvider) CancelJob(ctx context.Context, providerJobID string) error {
	return f.cancelErr
}

func (f *fakeProvider) ChatComplete(ctx context.Context, model string, messages []provider.Message) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProvider) setRemote(id string, j provider.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteJobs[id] = &j
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type fakeEnqueuer struct {
	polls []queue.FinetunePollPayload
	evals []queue.ReportEvaluatePayload
}

func (f *fakeEnqueuer) EnqueueFinetunePoll(p queue.FinetunePollPayload) error {
	f.polls = append(f.polls, p)
	return nil
}

func (f *fakeEnqueuer) EnqueueReportEvaluate(p queue.ReportEvaluatePayload) error {
	f.evals = append(f.evals, p)
	return nil
}

type fixture struct {
	svc      *Service
	bots     *fakeBotStore
	jobs     *fakeJobStore
	datasets *fakeDatasetStore
	provider *fakeProvider
	queue    *fakeEnqueuer
	pub      *recordingPublisher

	bot *models.Bot
	ds  *models.Dataset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bots := &fakeBotStore{items: make(map[uuid.UUID]*models.Bot)}
	jobs := &fakeJobStore{items: make(map[uuid.UUID]*models.FineTuneJob)}
	datasets := &fakeDatasetStore{items: make(map[uuid.UUID]*models.Dataset)}
	p := newFakeProvider()
	q := &fakeEnqueuer{}
	pub := &recordingPublisher{}

	svc := NewService(&store.Stores{Bots: bots, Jobs: jobs, Datasets: datasets}, p, pub, q)

	bot := &models.Bot{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "helper",
		Type:    models.DatasetTypeChat,
		Status:  models.BotStatusInactive,
	}
	require.NoError(t, bots.Create(context.Background(), bot))

	training := `{"messages":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}]}` + "\n"
	test := `{"messages":[{"role":"user","content":"tq"},{"role":"assistant","content":"ta"}]}` + "\n"
	ds := &models.Dataset{
		ID:              uuid.New(),
		Title:           "support data",
		Type:            models.DatasetTypeChat,
		TrainingContent: &training,
		TestContent:     &test,
	}
	require.NoError(t, datasets.Create(context.Background(), ds))

	return &fixture{svc: svc, bots: bots, jobs: jobs, datasets: datasets, provider: p, queue: q, pub: pub, bot: bot, ds: ds}
}

func TestCreateJobSubmitsAndMarksBotTraining(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, job.ProviderJobID)
	assert.Equal(t, models.JobStatusValidatingFiles, job.Status)
	assert.Equal(t, "gpt-3.5-turbo", job.Metadata.BaseModel) // chat type default
	assert.NotEmpty(t, job.TrainingFileID)
	assert.NotEmpty(t, job.ValidationFileID)
	assert.Greater(t, job.EstimatedCostUSD, 0.0)

	bot, err := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BotStatusTraining, bot.Status)

	require.Len(t, fx.queue.polls, 1)
	assert.Equal(t, job.ID.String(), fx.queue.polls[0].JobID)
}

func TestCreateJobFailedSubmissionRevertsBot(t *testing.T) {
	fx := newFixture(t)
	fx.provider.submitErr = errors.New("quota exceeded")

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.Error(t, err)
	require.NotNil(t, job)

	stored, getErr := fx.jobs.Get(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, stored.Error.Message, "quota exceeded")
	require.NotNil(t, stored.FinishedAt)

	bot, botErr := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, botErr)
	assert.Equal(t, models.BotStatusInactive, bot.Status)

	assert.Empty(t, fx.queue.polls)
}

func TestCreateJobRequiresTrainingContent(t *testing.T) {
	fx := newFixture(t)
	empty := &models.Dataset{ID: uuid.New(), Title: "empty", Type: models.DatasetTypeChat}
	require.NoError(t, fx.datasets.Create(context.Background(), empty))

	_, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: empty.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no training content")
	assert.Zero(t, fx.provider.submitCalls)
}

func TestCreateJobEnhancementUsesParentModel(t *testing.T) {
	fx := newFixture(t)

	parent := &models.FineTuneJob{
		ID:               uuid.New(),
		BotID:            fx.bot.ID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:gpt-3.5-turbo:parent",
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), parent))

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:       fx.bot.ID,
		DatasetID:   fx.ds.ID,
		ParentJobID: &parent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "ft:gpt-3.5-turbo:parent", job.Metadata.BaseModel)
	require.NotNil(t, job.ParentJobID)
	assert.Equal(t, parent.ID, *job.ParentJobID)
}

func TestCreateJobRejectsUnfinishedParent(t *testing.T) {
	fx := newFixture(t)

	parent := &models.FineTuneJob{
		ID:        uuid.New(),
		BotID:     fx.bot.ID,
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), parent))

	_, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:       fx.bot.ID,
		DatasetID:   fx.ds.ID,
		ParentJobID: &parent.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not succeeded")
}

func TestSyncStatusSucceededActivatesBotAndEnqueuesEval(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	finished := time.Now().UTC()
	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:               *job.ProviderJobID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:gpt-3.5-turbo:done",
		TrainedTokens:    120000,
		FinishedAt:       &finished,
	})

	synced, err := fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, synced.Status)
	assert.Equal(t, "ft:gpt-3.5-turbo:done", synced.FineTunedModelID)
	assert.Equal(t, 120000, synced.TrainedTokens)
	assert.Greater(t, synced.EstimatedCostUSD, 0.0)
	require.NotNil(t, synced.FinishedAt)

	bot, err := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BotStatusActive, bot.Status)
	assert.Equal(t, "ft:gpt-3.5-turbo:done", bot.Model)

	require.Len(t, fx.queue.evals, 1)
	assert.Equal(t, job.ID.String(), fx.queue.evals[0].JobID)
}

func TestSyncStatusNeverRegresses(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	// Advance to running.
	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:     *job.ProviderJobID,
		Status: models.JobStatusRunning,
	})
	synced, err := fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, synced.Status)
	require.NotNil(t, synced.TrainingStartedAt)

	// Remote briefly reports an earlier phase; local status must hold.
	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:     *job.ProviderJobID,
		Status: models.JobStatusPending,
	})
	synced, err = fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, synced.Status)
}

func TestSyncStatusFailedRevertsBot(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:     *job.ProviderJobID,
		Status: models.JobStatusFailed,
		Error:  &models.JobError{Message: "training loss diverged"},
	})

	synced, err := fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, synced.Status)
	require.NotNil(t, synced.Error)
	assert.Equal(t, "training loss diverged", synced.Error.Message)

	bot, err := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BotStatusInactive, bot.Status)
	assert.Empty(t, fx.queue.evals)
}

func TestSyncStatusTerminalJobIsNoop(t *testing.T) {
	fx := newFixture(t)

	provID := "ftjob-done"
	job := &models.FineTuneJob{
		ID:            uuid.New(),
		BotID:         fx.bot.ID,
		ProviderJobID: &provID,
		Status:        models.JobStatusSucceeded,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), job))

	synced, err := fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, synced.Status)
}

func TestSyncStatusPropagatesModelToParent(t *testing.T) {
	fx := newFixture(t)

	parent := &models.FineTuneJob{
		ID:               uuid.New(),
		BotID:            fx.bot.ID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:old",
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), parent))

	child, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:       fx.bot.ID,
		DatasetID:   fx.ds.ID,
		ParentJobID: &parent.ID,
	})
	require.NoError(t, err)

	fx.provider.setRemote(*child.ProviderJobID, provider.Job{
		ID:               *child.ProviderJobID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:new",
	})
	_, err = fx.svc.SyncStatus(context.Background(), child.ID)
	require.NoError(t, err)

	updatedParent, err := fx.jobs.Get(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "ft:new", updatedParent.FineTunedModelID)
}

func TestCancelRequiresProviderHandle(t *testing.T) {
	fx := newFixture(t)

	job := &models.FineTuneJob{
		ID:        uuid.New(),
		BotID:     fx.bot.ID,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), job))

	_, err := fx.svc.Cancel(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not been submitted")
}

func TestCancelProviderRejectionLeavesStateUntouched(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	fx.provider.cancelErr = errors.New("job already finalizing")
	_, err = fx.svc.Cancel(context.Background(), job.ID)
	require.Error(t, err)

	stored, getErr := fx.jobs.Get(context.Background(), job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusValidatingFiles, stored.Status)

	bot, botErr := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, botErr)
	assert.Equal(t, models.BotStatusTraining, bot.Status)
}

func TestCancelMarksJobCancelledAndRevertsBot(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	cancelled, err := fx.svc.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.FinishedAt)

	bot, botErr := fx.bots.Get(context.Background(), fx.bot.ID)
	require.NoError(t, botErr)
	assert.Equal(t, models.BotStatusInactive, bot.Status)

	// A second cancel is rejected.
	_, err = fx.svc.Cancel(context.Background(), job.ID)
	require.Error(t, err)
}

func TestGetJobMaterializesChildren(t *testing.T) {
	fx := newFixture(t)

	parent := &models.FineTuneJob{
		ID:               uuid.New(),
		BotID:            fx.bot.ID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:parent",
		CreatedAt:        time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, fx.jobs.Create(context.Background(), parent))

	first, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:       fx.bot.ID,
		DatasetID:   fx.ds.ID,
		ParentJobID: &parent.ID,
	})
	require.NoError(t, err)
	second, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:       fx.bot.ID,
		DatasetID:   fx.ds.ID,
		ParentJobID: &parent.ID,
	})
	require.NoError(t, err)

	got, err := fx.svc.GetJob(context.Background(), parent.ID)
	require.NoError(t, err)
	require.Len(t, got.ChildJobIDs, 2)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, got.ChildJobIDs)
}

func TestSyncStatusLateTerminalObservationKeepsDurationsNonNegative(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	// The first poll only sees the job after the provider finished it.
	finished := time.Now().UTC().Add(-8 * time.Minute)
	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:               *job.ProviderJobID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:gpt-3.5-turbo:late",
		FinishedAt:       &finished,
	})

	synced, err := fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)

	require.NotNil(t, synced.FinishedAt)
	assert.Equal(t, finished, *synced.FinishedAt)
	assert.GreaterOrEqual(t, synced.ValidationDurationSec, int64(0))
	assert.GreaterOrEqual(t, synced.TrainingDurationSec, int64(0))
	assert.GreaterOrEqual(t, synced.TotalDurationSec, int64(0))
	require.NotNil(t, synced.TrainingStartedAt)
	require.NotNil(t, synced.TrainingEndedAt)
	assert.False(t, synced.TrainingStartedAt.After(*synced.TrainingEndedAt))
	require.NotNil(t, synced.ValidationStartedAt)
	require.NotNil(t, synced.ValidationEndedAt)
	assert.False(t, synced.ValidationStartedAt.After(*synced.ValidationEndedAt))
}

func TestSyncStatusPublishesProgressOnPhaseAdvance(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:     *job.ProviderJobID,
		Status: models.JobStatusRunning,
	})
	_, err = fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, fx.pub.published(), events.FineTuneJobProgress)

	fx.provider.setRemote(*job.ProviderJobID, provider.Job{
		ID:               *job.ProviderJobID,
		Status:           models.JobStatusSucceeded,
		FineTunedModelID: "ft:done",
	})
	_, err = fx.svc.SyncStatus(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, events.FineTuneJobUpdated, fx.pub.published()[len(fx.pub.published())-1])
}

func TestDeleteJobRequiresTerminalStatus(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	err = fx.svc.DeleteJob(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancel it before deleting")

	_, err = fx.svc.Cancel(context.Background(), job.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteJob(context.Background(), job.ID))
	_, err = fx.jobs.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, fx.pub.published(), events.FineTuneJobDeleted)
}

func TestAuthorizeOwnerHidesForeignJobs(t *testing.T) {
	fx := newFixture(t)

	job, err := fx.svc.CreateJob(context.Background(), CreateJobRequest{
		BotID:     fx.bot.ID,
		DatasetID: fx.ds.ID,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.AuthorizeOwner(context.Background(), job.ID, fx.bot.OwnerID))

	err = fx.svc.AuthorizeOwner(context.Background(), job.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
