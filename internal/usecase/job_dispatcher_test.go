package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/domain/models"
	"Screener/internal/repository"
	"Screener/pkg/cache"
)

type captureQueue struct {
	msgType  string
	payloads []interface{}
}

func (q *captureQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.msgType = msgType
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestJobDispatcherEnqueue(t *testing.T) {
	q := &captureQueue{}
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	d := NewJobDispatcher(q, jobs)

	st, err := d.Enqueue(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-05", OnError: "skip",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, models.JobStatusQueued, st.Status)
	assert.Equal(t, "screen.run", q.msgType)
	require.Len(t, q.payloads, 1)

	p, ok := q.payloads[0].(ScreenRunPayload)
	require.True(t, ok)
	assert.Equal(t, st.ID, p.JobID)
	assert.Equal(t, "mean_reversion", p.Screen)
	assert.Equal(t, "skip", p.OnError)

	got, err := d.Status(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, got.Status)
}

type failingQueue struct {
	payload ScreenRunPayload
}

func (q *failingQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.payload, _ = payload.(ScreenRunPayload)
	return errors.New("broker down")
}

func TestJobDispatcherEnqueuePublishFailure(t *testing.T) {
	q := &failingQueue{}
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	d := NewJobDispatcher(q, jobs)

	_, err := d.Enqueue(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-05",
	})
	require.Error(t, err)

	// The saved job must not be left queued when publish failed.
	st, err := jobs.Get(context.Background(), q.payload.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, st.Status)
	assert.NotEmpty(t, st.Error)
	assert.NotNil(t, st.FinishedAt)
}

func TestJobDispatcherQueueDisabled(t *testing.T) {
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	d := NewJobDispatcher(nil, jobs)

	_, err := d.Enqueue(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-05",
	})
	assert.Error(t, err)
}

func TestJobDispatcherStatusUnknown(t *testing.T) {
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	d := NewJobDispatcher(&captureQueue{}, jobs)

	_, err := d.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestScreenRunJobLifecycle(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	job := NewScreenRunJob(svc, jobs, testLogger(t))

	assert.Equal(t, "screen_run", job.Name())
	assert.Equal(t, "screen.run", job.Type())

	err := job.Handle(context.Background(), ScreenRunPayload{
		JobID:   "j1",
		Screen:  "mean_reversion",
		From:    "2024-01-03",
		To:      "2024-01-03",
		OnError: "abort",
	})
	require.NoError(t, err)

	st, err := jobs.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, st.Status)
	require.NotNil(t, st.Result)
	assert.Len(t, st.Result.Dates, 1)
	assert.NotNil(t, st.FinishedAt)
}

func TestScreenRunJobFailure(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	job := NewScreenRunJob(svc, jobs, testLogger(t))

	err := job.Handle(context.Background(), ScreenRunPayload{
		JobID:  "j2",
		Screen: "momentum",
		From:   "2024-01-03",
		To:     "2024-01-03",
	})
	require.NoError(t, err) // failure is final job state, not a queue retry

	st, err := jobs.Get(context.Background(), "j2")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, st.Status)
	assert.NotEmpty(t, st.Error)
	assert.Nil(t, st.Result)
}
