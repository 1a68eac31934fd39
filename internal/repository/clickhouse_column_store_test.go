package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/pipeline"
)

func TestHistoryQueryBoundsWindowPerAsset(t *testing.T) {
	s := &ClickHouseColumnStore{table: "screener.daily_bars"}

	q := s.historyQuery("close", 30)

	assert.Equal(t,
		"SELECT asset, close FROM screener.daily_bars WHERE date <= ? ORDER BY asset, date DESC LIMIT 30 BY asset",
		q)
	// LIMIT BY keeps the window deterministic under parallel aggregation;
	// a groupArray truncation here would not be.
	assert.NotContains(t, q, "groupArray")
}

func TestClickHouseStoreRejectsUnknownFields(t *testing.T) {
	s := &ClickHouseColumnStore{table: "screener.daily_bars"}
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := s.GetColumn(context.Background(), "pe_ratio", date)
	var missing *pipeline.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "pe_ratio", missing.Field)

	_, err = s.GetHistory(context.Background(), "pe_ratio", date, 10)
	require.ErrorAs(t, err, &missing)
}
