package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
	"Screener/internal/pipeline"
	"Screener/internal/repository"
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

type captureSink struct {
	recs []*models.ResultRecord
}

func (s *captureSink) Store(ctx context.Context, r *models.ResultRecord) error {
	s.recs = append(s.recs, r)
	return nil
}

func (s *captureSink) StoreBatch(ctx context.Context, recs []*models.ResultRecord) error {
	s.recs = append(s.recs, recs...)
	return nil
}

func (s *captureSink) Close() error { return nil }

func testConfig() *config.Config {
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

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return l
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t.UTC()
}

// fixtureStore covers three trading days of four assets. Asset A has run up
// against its own average, B has sold off, C is flat and D is illiquid.
func fixtureStore() *repository.MemoryColumnStore {
	store := repository.NewMemoryColumnStore()
	closes := map[string][3]float64{
		"A": {10, 10, 16},
		"B": {10, 10, 4},
		"C": {10, 10, 10},
		"D": {10, 10, 10},
	}
	volumes := map[string]float64{"A": 1000, "B": 900, "C": 800, "D": 1}
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	for i, d := range dates {
		closeCol := map[pipeline.Asset]float64{}
		volCol := map[pipeline.Asset]float64{}
		for a, c := range closes {
			closeCol[pipeline.Asset(a)] = c[i]
			volCol[pipeline.Asset(a)] = volumes[a]
		}
		store.SetColumn("close", day(d), pipeline.NumericColumn(closeCol))
		store.SetColumn("volume", day(d), pipeline.NumericColumn(volCol))
	}
	return store
}

func newTestService(t *testing.T, cfg *config.Config) (*ScreenService, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	proc := NewResultProcessor(sink, noopMetrics{}, cfg.Results.Backend, cfg.Results.BatchSize, cfg.Results.Timeout)
	svc, err := NewScreenService(cfg, fixtureStore(), proc, noopMetrics{}, testLogger(t))
	require.NoError(t, err)
	return svc, sink
}

func TestBuildMeanReversionValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Screens.MeanReversion.FastWindow = 5
	cfg.Screens.MeanReversion.SlowWindow = 3
	_, _, err := BuildMeanReversion(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Screens.MeanReversion.LegSize = 0
	_, _, err = BuildMeanReversion(cfg)
	assert.Error(t, err)
}

func TestScreenServiceList(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	screens := svc.List()
	require.Len(t, screens, 1)
	assert.Equal(t, "mean_reversion", screens[0].Name)
	assert.Equal(t, []string{OutFactor, OutLongs, OutShorts}, screens[0].Outputs)
}

func TestScreenServiceRun(t *testing.T) {
	svc, sink := newTestService(t, testConfig())

	res, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-03", OnError: "abort",
	})
	require.NoError(t, err)
	require.Len(t, res.Dates, 1)

	table := res.Dates[0]
	assert.Equal(t, "2024-01-03", table.Date)
	require.Len(t, table.Rows, 2)

	// A ran up: short leg. B sold off: long leg.
	rowA := table.Rows["A"]
	require.NotNil(t, rowA)
	assert.Equal(t, true, rowA[OutShorts])
	assert.Equal(t, false, rowA[OutLongs])
	assert.InDelta(t, 1.0/12.0, rowA[OutFactor].(float64), 1e-9)

	rowB := table.Rows["B"]
	require.NotNil(t, rowB)
	assert.Equal(t, true, rowB[OutLongs])
	assert.Equal(t, false, rowB[OutShorts])
	assert.InDelta(t, -0.125, rowB[OutFactor].(float64), 1e-9)

	// 2 assets x 3 outputs flattened into the sink.
	assert.Len(t, sink.recs, 6)
	for _, r := range sink.recs {
		assert.Equal(t, "mean_reversion", r.Screen)
		assert.Equal(t, day("2024-01-03"), r.Date)
	}
}

func TestScreenServiceRunFlattensBooleans(t *testing.T) {
	svc, sink := newTestService(t, testConfig())

	_, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-03", OnError: "abort",
	})
	require.NoError(t, err)

	byKey := map[string]*models.ResultRecord{}
	for _, r := range sink.recs {
		byKey[r.Asset+":"+r.Output] = r
	}
	require.NotNil(t, byKey["A:"+OutShorts].Value)
	assert.Equal(t, 1.0, *byKey["A:"+OutShorts].Value)
	require.NotNil(t, byKey["A:"+OutLongs].Value)
	assert.Equal(t, 0.0, *byKey["A:"+OutLongs].Value)
}

func TestScreenServiceRunUnknownScreen(t *testing.T) {
	svc, _ := newTestService(t, testConfig())
	_, err := svc.Run(context.Background(), "momentum", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-03",
	})
	assert.Error(t, err)
}

func TestScreenServiceRunBadDates(t *testing.T) {
	svc, _ := newTestService(t, testConfig())

	_, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "not-a-date", To: "2024-01-03",
	})
	assert.Error(t, err)

	_, err = svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-05", To: "2024-01-03",
	})
	assert.Error(t, err)
}

func TestScreenServiceRunRangeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Runs.MaxRangeDays = 2
	svc, _ := newTestService(t, cfg)

	_, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-01", To: "2024-01-10",
	})
	assert.Error(t, err)
}

// failingStore errors on one date's history reads to exercise error policies.
type failingStore struct {
	*repository.MemoryColumnStore
	failOn time.Time
}

func (s *failingStore) GetHistory(ctx context.Context, field string, date time.Time, window int) (map[pipeline.Asset][]float64, error) {
	if date.Equal(s.failOn) {
		return nil, errors.New("storage offline")
	}
	return s.MemoryColumnStore.GetHistory(ctx, field, date, window)
}

func newFailingService(t *testing.T, failOn time.Time) *ScreenService {
	t.Helper()
	cfg := testConfig()
	sink := &captureSink{}
	proc := NewResultProcessor(sink, noopMetrics{}, cfg.Results.Backend, cfg.Results.BatchSize, cfg.Results.Timeout)
	store := &failingStore{MemoryColumnStore: fixtureStore(), failOn: failOn}
	svc, err := NewScreenService(cfg, store, proc, noopMetrics{}, testLogger(t))
	require.NoError(t, err)
	return svc
}

func TestScreenServiceRunSkipPolicy(t *testing.T) {
	svc := newFailingService(t, day("2024-01-04"))

	res, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-04", OnError: "skip",
	})
	require.NoError(t, err)
	require.Len(t, res.Dates, 2)
	assert.Empty(t, res.Dates[0].Error)
	assert.NotEmpty(t, res.Dates[1].Error)
	assert.Empty(t, res.Dates[1].Rows)
}

func TestScreenServiceRunPolicyDefaultsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Runs.OnError = "skip"
	sink := &captureSink{}
	proc := NewResultProcessor(sink, noopMetrics{}, cfg.Results.Backend, cfg.Results.BatchSize, cfg.Results.Timeout)
	store := &failingStore{MemoryColumnStore: fixtureStore(), failOn: day("2024-01-04")}
	svc, err := NewScreenService(cfg, store, proc, noopMetrics{}, testLogger(t))
	require.NoError(t, err)

	// Request leaves on_error empty, runs.on_error supplies the policy.
	res, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-04",
	})
	require.NoError(t, err)
	require.Len(t, res.Dates, 2)
	assert.NotEmpty(t, res.Dates[1].Error)

	// An explicit request policy still wins over the config default.
	_, err = svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-04", OnError: "abort",
	})
	assert.Error(t, err)
}

func TestValueToJSONKinds(t *testing.T) {
	assert.Nil(t, valueToJSON(pipeline.Null(pipeline.KindNumeric)))
	assert.Equal(t, 1.5, valueToJSON(pipeline.Num(1.5)))
	assert.Equal(t, true, valueToJSON(pipeline.Bool(true)))
	assert.Equal(t, "XNYS", valueToJSON(pipeline.Str("XNYS")))
}

func TestScreenServiceRunAbortPolicy(t *testing.T) {
	svc := newFailingService(t, day("2024-01-04"))

	_, err := svc.Run(context.Background(), "mean_reversion", &models.RunScreenRequest{
		From: "2024-01-03", To: "2024-01-04", OnError: "abort",
	})
	assert.Error(t, err)
}
