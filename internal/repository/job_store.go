package repository

import (
	"context"
	"errors"
	"time"

	"Screener/internal/domain/models"
	"Screener/internal/domain/repository"
	"Screener/pkg/cache"
)

// ErrJobNotFound is returned when a job id is unknown or expired.
var ErrJobNotFound = errors.New("job not found")

// CacheJobStore keeps asynchronous run state in the cache layer. Jobs expire
// after ttl; callers that need long-term history read the result sink instead.
type CacheJobStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) repository.JobStore {
	return &CacheJobStore{cache: c, ttl: ttl}
}

func jobKey(id string) string { return cache.GenerateKey("job", id) }

func (s *CacheJobStore) Save(ctx context.Context, st *models.JobStatus) error {
	return s.cache.Set(ctx, jobKey(st.ID), st, s.ttl)
}

func (s *CacheJobStore) Get(ctx context.Context, id string) (*models.JobStatus, error) {
	var st models.JobStatus
	if err := s.cache.Get(ctx, jobKey(id), &st); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &st, nil
}
