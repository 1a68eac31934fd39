package usecase

import (
	"context"
	"time"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
	"Screener/pkg/logger"
	"Screener/pkg/queue"
)

// ScreenRunPayload is the queue message for an asynchronous screen run.
type ScreenRunPayload struct {
	JobID   string `json:"job_id"`
	Screen  string `json:"screen"`
	From    string `json:"from"`
	To      string `json:"to"`
	OnError string `json:"on_error"`
}

// ScreenRunJob executes queued screen runs and tracks their state so the
// jobs endpoint can be polled while a run is in flight.
type ScreenRunJob struct {
	service *ScreenService
	jobs    drepo.JobStore
	log     *logger.Logger
}

func NewScreenRunJob(service *ScreenService, jobs drepo.JobStore, log *logger.Logger) *ScreenRunJob {
	return &ScreenRunJob{service: service, jobs: jobs, log: log}
}

func (j *ScreenRunJob) Name() string { return "screen_run" }
func (j *ScreenRunJob) Type() string { return "screen.run" }

func (j *ScreenRunJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScreenRunPayload](payload)
	if err != nil {
		return err
	}

	st := &models.JobStatus{
		ID:     p.JobID,
		Screen: p.Screen,
		From:   p.From,
		To:     p.To,
		Status: models.JobStatusRunning,
	}
	if prev, err := j.jobs.Get(ctx, p.JobID); err == nil {
		st.EnqueuedAt = prev.EnqueuedAt
	}
	if err := j.jobs.Save(ctx, st); err != nil {
		j.log.Warn("save job state", logger.String("job", p.JobID), logger.Error(err))
	}

	result, runErr := j.service.Run(ctx, p.Screen, &models.RunScreenRequest{
		From:    p.From,
		To:      p.To,
		OnError: p.OnError,
	})

	now := time.Now().UTC()
	st.FinishedAt = &now
	if runErr != nil {
		st.Status = models.JobStatusFailed
		st.Error = runErr.Error()
	} else {
		st.Status = models.JobStatusSucceeded
		st.Result = result
	}
	if err := j.jobs.Save(ctx, st); err != nil {
		j.log.Error("save job result", logger.String("job", p.JobID), logger.Error(err))
		return err
	}
	// Failed runs are final state, not retryable queue errors.
	return nil
}

var _ queue.Job = (*ScreenRunJob)(nil)
