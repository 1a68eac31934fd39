package usecase

import (
	"context"
	"fmt"
	"time"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
)

// ResultProcessor routes flattened screen output rows to the configured
// backend: the Kafka results topic or the ClickHouse results table.
type ResultProcessor struct {
	sink    drepo.ResultSink
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewResultProcessor creates a new ResultProcessor instance.
func NewResultProcessor(
	sink drepo.ResultSink,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *ResultProcessor {
	return &ResultProcessor{
		sink:    sink,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// ProcessBatch stores records in chunks of the configured batch size, each
// chunk under its own timeout so one slow insert cannot stall a long run.
func (p *ResultProcessor) ProcessBatch(ctx context.Context, recs []*models.ResultRecord) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	for begin := 0; begin < len(recs); begin += p.batchSz {
		end := begin + p.batchSz
		if end > len(recs) {
			end = len(recs)
		}
		chunkCtx, cancel := context.WithTimeout(ctx, p.batchTO)
		err := p.sink.StoreBatch(chunkCtx, recs[begin:end])
		cancel()
		if err != nil {
			p.metrics.RecordError("process_batch")
			return fmt.Errorf("process batch: %w", err)
		}
	}

	p.metrics.RecordResultsSent(p.backend, recs[0].Screen, len(recs))
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *ResultProcessor) Close() {
	if p.sink != nil {
		_ = p.sink.Close()
	}
}
