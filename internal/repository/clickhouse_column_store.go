package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Screener/internal/domain/repository"
	"Screener/internal/pipeline"
)

// barFields are the raw columns served straight from the daily bars table.
// Anything else is a derived factor and must come from a factor layer above.
var barFields = map[string]bool{
	"open":   true,
	"high":   true,
	"low":    true,
	"close":  true,
	"volume": true,
}

// ClickHouseColumnStore serves cross-sectional columns from a daily bars table.
type ClickHouseColumnStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseColumnStore creates ClickHouse-backed column storage.
func NewClickHouseColumnStore(db *sql.DB, table string) repository.ColumnStore {
	return &ClickHouseColumnStore{db: db, table: table}
}

func (s *ClickHouseColumnStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseColumnStore) GetColumn(ctx context.Context, field string, date time.Time) (pipeline.Column, error) {
	if !barFields[field] {
		return pipeline.Column{}, &pipeline.MissingColumnError{Field: field, Date: date}
	}
	q := fmt.Sprintf("SELECT asset, %s FROM %s WHERE date = ?", field, s.table)
	rows, err := s.db.QueryContext(ctx, q, date.Format("2006-01-02"))
	if err != nil {
		return pipeline.Column{}, err
	}
	defer rows.Close()

	col := pipeline.NewColumn(pipeline.KindNumeric)
	for rows.Next() {
		var asset string
		var v sql.NullFloat64
		if err := rows.Scan(&asset, &v); err != nil {
			return pipeline.Column{}, err
		}
		if v.Valid {
			col.Set(pipeline.Asset(asset), pipeline.Num(v.Float64))
		} else {
			col.Set(pipeline.Asset(asset), pipeline.Null(pipeline.KindNumeric))
		}
	}
	return col, rows.Err()
}

// historyQuery selects the newest window rows per asset on or before a date.
// LIMIT BY runs after the sort, so the kept rows are deterministic; groupArray
// truncation is not, its insertion order depends on parallel aggregation.
func (s *ClickHouseColumnStore) historyQuery(field string, window int) string {
	return fmt.Sprintf("SELECT asset, %s FROM %s WHERE date <= ? ORDER BY asset, date DESC LIMIT %d BY asset", field, s.table, window)
}

// GetHistory returns, per asset, the last window values of field on or before
// date, oldest first. Assets with fewer than window rows are returned with
// what they have; the factor layer decides whether that is enough.
func (s *ClickHouseColumnStore) GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error) {
	if !barFields[field] {
		return nil, &pipeline.MissingColumnError{Field: field, Date: date}
	}
	rows, err := s.db.QueryContext(ctx, s.historyQuery(field, window), date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hist := make(map[pipeline.Asset][]float64)
	for rows.Next() {
		var asset string
		var v sql.NullFloat64
		if err := rows.Scan(&asset, &v); err != nil {
			return nil, err
		}
		if v.Valid {
			a := pipeline.Asset(asset)
			hist[a] = append(hist[a], v.Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows arrive newest-first per asset, factor windows want oldest-first.
	for _, vals := range hist {
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	return hist, nil
}

func (s *ClickHouseColumnStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseColumnStore) Close() error {
	return nil // Managed by pkg
}
