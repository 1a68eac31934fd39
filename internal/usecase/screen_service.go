package usecase

import (
	"context"
	"sort"
	"time"

	"Screener/internal/domain/models"
	drepo "Screener/internal/domain/repository"
	"Screener/internal/pipeline"
	"Screener/internal/services/factors"
	"Screener/pkg/config"
	apphttp "Screener/pkg/http"
	"Screener/pkg/logger"
	"Screener/pkg/util"
)

// registeredScreen pairs a pipeline with the source that resolves its fields.
type registeredScreen struct {
	pipeline *pipeline.Pipeline
	source   pipeline.Source
	outputs  []string
}

// ScreenService owns the screen registry and runs screens over date ranges,
// publishing flattened results through the ResultProcessor.
type ScreenService struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   drepo.Metrics
	processor *ResultProcessor
	screens   map[string]*registeredScreen
}

// NewScreenService builds the registry from config. Screens disabled in
// config simply do not register.
func NewScreenService(
	cfg *config.Config,
	store drepo.ColumnStore,
	processor *ResultProcessor,
	metrics drepo.Metrics,
	log *logger.Logger,
) (*ScreenService, error) {
	s := &ScreenService{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		processor: processor,
		screens:   make(map[string]*registeredScreen),
	}

	if cfg.Screens.MeanReversion.Enabled {
		p, defs, err := BuildMeanReversion(cfg)
		if err != nil {
			return nil, err
		}
		src, err := factors.NewDerivedSource(store, store, defs...)
		if err != nil {
			return nil, err
		}
		s.register(p, src)
	}
	return s, nil
}

func (s *ScreenService) register(p *pipeline.Pipeline, src pipeline.Source) {
	outs := make([]string, 0, len(p.Outputs))
	for _, o := range p.Outputs {
		outs = append(outs, o.Name)
	}
	s.screens[p.Name] = &registeredScreen{pipeline: p, source: src, outputs: outs}
}

// List returns registered screens sorted by name.
func (s *ScreenService) List() []models.ScreenInfo {
	out := make([]models.ScreenInfo, 0, len(s.screens))
	for name, sc := range s.screens {
		out = append(out, models.ScreenInfo{Name: name, Outputs: sc.outputs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run evaluates one screen over [from, to] and stores the flattened rows.
// With the skip policy a failed date stays in the response carrying its
// error; with abort the whole run fails.
func (s *ScreenService) Run(ctx context.Context, name string, req *models.RunScreenRequest) (*models.RunResult, error) {
	sc, ok := s.screens[name]
	if !ok {
		return nil, apphttp.NotFoundErrorf("unknown screen: %s", name)
	}

	from, ok := util.ParseDate(req.From)
	if !ok {
		return nil, apphttp.BadRequestErrorf("invalid from date: %s", req.From)
	}
	to, ok := util.ParseDate(req.To)
	if !ok {
		return nil, apphttp.BadRequestErrorf("invalid to date: %s", req.To)
	}
	if to.Before(from) {
		return nil, apphttp.BadRequestError("to date before from date")
	}
	if max := s.cfg.Runs.MaxRangeDays; max > 0 && util.DaysBetween(from, to) > max {
		return nil, apphttp.BadRequestErrorf("date range exceeds %d days", max)
	}

	onErr := req.OnError
	if onErr == "" {
		onErr = s.cfg.Runs.OnError
	}
	opts := pipeline.RunOptions{
		Policy:  pipeline.AbortAll,
		Workers: s.cfg.Runs.Workers,
	}
	if onErr == "skip" {
		opts.Policy = pipeline.SkipAndContinue
	}
	if s.cfg.Runs.TradingDays {
		opts.Calendar = util.IsTradingDay
	}

	start := time.Now()
	results, err := pipeline.Run(ctx, sc.source, sc.pipeline, from, to, opts)
	if err != nil {
		s.metrics.RecordEvaluation(name, false)
		s.metrics.RecordError("run")
		return nil, err
	}
	s.metrics.RecordLatency("run", time.Since(start).Seconds())

	resp := &models.RunResult{Screen: name, From: req.From, To: req.To}
	var recs []*models.ResultRecord
	rows := 0
	for _, dr := range results {
		if dr.Err != nil {
			s.metrics.RecordError("date")
			resp.Dates = append(resp.Dates, models.DateTable{
				Date:  util.FormatDate(dr.Date),
				Error: dr.Err.Error(),
			})
			continue
		}
		resp.Dates = append(resp.Dates, tableToDTO(dr.Table))
		recs = append(recs, flattenTable(name, dr.Table)...)
		rows += len(dr.Table.Rows)
	}
	s.metrics.RecordEvaluation(name, true)
	s.metrics.RecordResultRows(name, rows)

	if len(recs) > 0 {
		if err := s.processor.ProcessBatch(ctx, recs); err != nil {
			s.log.Error("store screen results",
				logger.String("screen", name), logger.Error(err))
			return nil, err
		}
	}

	s.log.Info("screen run complete",
		logger.String("screen", name),
		logger.String("from", req.From),
		logger.String("to", req.To),
		logger.Int("rows", rows))
	return resp, nil
}

func tableToDTO(t *pipeline.ResultTable) models.DateTable {
	dto := models.DateTable{
		Date:    util.FormatDate(t.Date),
		Columns: t.Columns,
		Rows:    make(map[string]map[string]any, len(t.Rows)),
	}
	for _, a := range t.AssetsSorted() {
		row := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			row[col] = valueToJSON(t.Rows[a][col])
		}
		dto.Rows[string(a)] = row
	}
	return dto
}

func valueToJSON(v pipeline.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case pipeline.KindBool:
		return v.Bool()
	case pipeline.KindString:
		return v.Str()
	default:
		return v.Num()
	}
}

// flattenTable turns a per-date table into one record per output cell.
// Booleans become 1/0 so a single numeric sink column fits every output.
func flattenTable(screen string, t *pipeline.ResultTable) []*models.ResultRecord {
	recs := make([]*models.ResultRecord, 0, len(t.Rows)*len(t.Columns))
	for _, a := range t.AssetsSorted() {
		for _, col := range t.Columns {
			v := t.Rows[a][col]
			var val *float64
			if !v.IsNull() {
				f := v.Num()
				if v.Kind() == pipeline.KindBool {
					f = 0
					if v.Bool() {
						f = 1
					}
				}
				val = &f
			}
			recs = append(recs, &models.ResultRecord{
				Screen: screen,
				Date:   t.Date,
				Asset:  string(a),
				Output: col,
				Value:  val,
			})
		}
	}
	return recs
}
