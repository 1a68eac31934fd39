package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
	apphttp "Screener/pkg/http"
	"Screener/pkg/queue"
)

// JobDispatcher enqueues asynchronous screen runs and answers status polls.
type JobDispatcher struct {
	queue queue.QueueService
	jobs  drepo.JobStore
}

func NewJobDispatcher(q queue.QueueService, jobs drepo.JobStore) *JobDispatcher {
	return &JobDispatcher{queue: q, jobs: jobs}
}

func newJobID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Enqueue records the job as queued and publishes it to the run queue.
func (d *JobDispatcher) Enqueue(ctx context.Context, screen string, req *models.RunScreenRequest) (*models.JobStatus, error) {
	if d.queue == nil {
		return nil, apphttp.NewAppError("queue_disabled", "", "job queue is not enabled", http.StatusServiceUnavailable)
	}
	st := &models.JobStatus{
		ID:         newJobID(),
		Screen:     screen,
		From:       req.From,
		To:         req.To,
		Status:     models.JobStatusQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := d.jobs.Save(ctx, st); err != nil {
		return nil, err
	}
	payload := ScreenRunPayload{
		JobID:   st.ID,
		Screen:  screen,
		From:    req.From,
		To:      req.To,
		OnError: req.OnError,
	}
	if err := d.queue.PublishMessage(ctx, "screen.run", payload); err != nil {
		// The saved record must not stay queued when nothing will pick it up.
		st.Status = models.JobStatusFailed
		st.Error = err.Error()
		now := time.Now().UTC()
		st.FinishedAt = &now
		if saveErr := d.jobs.Save(ctx, st); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}
	return st, nil
}

// Status returns the current state of a job.
func (d *JobDispatcher) Status(ctx context.Context, id string) (*models.JobStatus, error) {
	return d.jobs.Get(ctx, id)
}
