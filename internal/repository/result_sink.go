package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"Screener/internal/domain/models"
	"Screener/internal/domain/repository"
	pkgkafka "Screener/pkg/kafka"
)

// ClickHouseResultSink stores flattened screen output rows in ClickHouse.
type ClickHouseResultSink struct {
	db    *sql.DB
	table string
}

func NewClickHouseResultSink(db *sql.DB, table string) repository.ResultSink {
	return &ClickHouseResultSink{db: db, table: table}
}

func (s *ClickHouseResultSink) Store(ctx context.Context, rec *models.ResultRecord) error {
	return s.StoreBatch(ctx, []*models.ResultRecord{rec})
}

func (s *ClickHouseResultSink) StoreBatch(ctx context.Context, recs []*models.ResultRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, r := range recs[start:end] {
			if r == nil || r.Screen == "" || r.Asset == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				r.Screen,
				r.Date.Format("2006-01-02"),
				r.Asset,
				r.Output,
				r.Value,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (screen, date, asset, output, value) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseResultSink) Close() error {
	return nil // Managed by pkg
}

// KafkaResultSink publishes screen output rows to a results topic, keyed by
// screen name so consumers see one screen's rows in order.
type KafkaResultSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultSink(producer *pkgkafka.Producer, topic string) repository.ResultSink {
	return &KafkaResultSink{producer: producer, topic: topic}
}

func (s *KafkaResultSink) Store(ctx context.Context, rec *models.ResultRecord) error {
	return s.producer.Publish(ctx, s.topic, []byte(rec.Screen), recordPayload(rec))
}

func (s *KafkaResultSink) StoreBatch(ctx context.Context, recs []*models.ResultRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Screen),
			Value: recordPayload(r),
		}
	}
	return s.producer.PublishBatch(ctx, s.topic, msgs)
}

func recordPayload(r *models.ResultRecord) map[string]interface{} {
	return map[string]interface{}{
		"screen": r.Screen,
		"date":   r.Date.Format("2006-01-02"),
		"asset":  r.Asset,
		"output": r.Output,
		"value":  r.Value,
	}
}

func (s *KafkaResultSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
