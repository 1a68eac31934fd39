package repository

import (
	"context"
	"time"

	"Screener/internal/domain/models"
	"Screener/internal/pipeline"
)

// ColumnStore serves cross-sectional market data columns. It is the raw
// backend behind pipeline evaluation: one column per (field, date).
type ColumnStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error)
	GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultSink receives flattened screen output rows.
type ResultSink interface {
	Store(ctx context.Context, rec *models.ResultRecord) error
	StoreBatch(ctx context.Context, recs []*models.ResultRecord) error
	Close() error
}

// JobStore persists asynchronous run state for polling.
type JobStore interface {
	Save(ctx context.Context, st *models.JobStatus) error
	Get(ctx context.Context, id string) (*models.JobStatus, error)
}

type Metrics interface {
	RecordEvaluation(screen string, ok bool)
	RecordResultRows(screen string, rows int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCacheLookup(kind string, hit bool)
	RecordResultsSent(backend, screen string, rows int)
}
