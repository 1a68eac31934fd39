package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
	"Screener/internal/pipeline"
	"Screener/internal/repository"
	icache "Screener/internal/service/cache"
	"Screener/internal/usecase"
	"Screener/pkg/cache"
	"Screener/pkg/config"
	"Screener/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordEvaluation(string, bool)         {}
func (noopMetrics) RecordResultRows(string, int)          {}
func (noopMetrics) RecordError(string)                    {}
func (noopMetrics) RecordLatency(string, float64)         {}
func (noopMetrics) RecordCacheLookup(string, bool)        {}
func (noopMetrics) RecordResultsSent(string, string, int) {}

var _ drepo.Metrics = noopMetrics{}

type discardSink struct{}

func (discardSink) Store(context.Context, *models.ResultRecord) error        { return nil }
func (discardSink) StoreBatch(context.Context, []*models.ResultRecord) error { return nil }
func (discardSink) Close() error                                             { return nil }

type captureQueue struct {
	payloads []interface{}
}

func (q *captureQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

func fixtureConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Screens.MeanReversion.Enabled = true
	cfg.Screens.MeanReversion.FastWindow = 2
	cfg.Screens.MeanReversion.SlowWindow = 3
	cfg.Screens.MeanReversion.UniverseSize = 3
	cfg.Screens.MeanReversion.LiquidityWin = 2
	cfg.Screens.MeanReversion.LegSize = 1
	cfg.Runs.Workers = 1
	cfg.Runs.MaxRangeDays = 30
	cfg.Results.Backend = "clickhouse"
	cfg.Results.BatchSize = 100
	cfg.Results.Timeout = time.Second
	return cfg
}

func fixtureColumns() *repository.MemoryColumnStore {
	store := repository.NewMemoryColumnStore()
	closes := map[string][3]float64{
		"A": {10, 10, 16},
		"B": {10, 10, 4},
		"C": {10, 10, 10},
	}
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	for i, ds := range dates {
		d, _ := time.Parse("2006-01-02", ds)
		closeCol := map[pipeline.Asset]float64{}
		volCol := map[pipeline.Asset]float64{}
		for a, c := range closes {
			closeCol[pipeline.Asset(a)] = c[i]
			volCol[pipeline.Asset(a)] = 1000
		}
		store.SetColumn("close", d, pipeline.NumericColumn(closeCol))
		store.SetColumn("volume", d, pipeline.NumericColumn(volCol))
	}
	return store
}

func newTestHandler(t *testing.T) (*ScreensHandler, *captureQueue) {
	t.Helper()
	cfg := fixtureConfig()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)

	proc := usecase.NewResultProcessor(discardSink{}, noopMetrics{}, "clickhouse", 100, time.Second)
	svc, err := usecase.NewScreenService(cfg, fixtureColumns(), proc, noopMetrics{}, l)
	require.NoError(t, err)

	q := &captureQueue{}
	jobs := repository.NewCacheJobStore(cache.NewMemoryCache(), time.Hour)
	dispatcher := usecase.NewJobDispatcher(q, jobs)

	return NewScreensHandler(l, svc, dispatcher, 0), q
}

func doRequest(h *ScreensHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListScreens(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/screens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mean_reversion")
}

// responses always ship HTTP 200; the logical status rides in the body
func bodyStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Status
}

func TestRunScreen(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/screens/mean_reversion/run",
		`{"from":"2024-01-03","to":"2024-01-03","on_error":"abort"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status int              `json:"status"`
		Data   models.RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "mean_reversion", body.Data.Screen)
	require.Len(t, body.Data.Dates, 1)
	assert.NotEmpty(t, body.Data.Dates[0].Rows)
}

func TestRunScreenValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/screens/mean_reversion/run",
		`{"to":"2024-01-03"}`)
	assert.Equal(t, http.StatusBadRequest, bodyStatus(t, rec))
}

func TestRunScreenUnknown(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/screens/momentum/run",
		`{"from":"2024-01-03","to":"2024-01-03","on_error":"abort"}`)
	assert.Equal(t, http.StatusNotFound, bodyStatus(t, rec))
}

func TestRunScreenCached(t *testing.T) {
	h, _ := newTestHandler(t)
	h.SetCache(icache.NewTTLCache(), time.Minute)

	body := `{"from":"2024-01-03","to":"2024-01-03","on_error":"abort"}`
	first := doRequest(h, http.MethodPost, "/api/screens/mean_reversion/run", body)
	require.Equal(t, http.StatusOK, first.Code)
	second := doRequest(h, http.MethodPost, "/api/screens/mean_reversion/run", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestEnqueueAndPollJob(t *testing.T) {
	h, q := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/screens/mean_reversion/jobs",
		`{"from":"2024-01-03","to":"2024-01-03","on_error":"skip"}`)
	require.Equal(t, http.StatusAccepted, bodyStatus(t, rec))
	require.Len(t, q.payloads, 1)

	var body struct {
		Data models.JobStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.JobStatusQueued, body.Data.Status)

	poll := doRequest(h, http.MethodGet, "/api/jobs/"+body.Data.ID, "")
	require.Equal(t, http.StatusOK, bodyStatus(t, poll))
}

func TestJobStatusUnknown(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, bodyStatus(t, rec))
}
