package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ErrorPolicy controls how a multi-date run reacts to one date failing.
type ErrorPolicy uint8

const (
	// AbortAll stops the whole run on the first per-date error.
	AbortAll ErrorPolicy = iota
	// SkipAndContinue isolates the failure: the date is reported with its
	// error and the run moves on. No partial table is ever emitted for a
	// failed date.
	SkipAndContinue
)

// RunOptions tunes a date-range run.
type RunOptions struct {
	Policy  ErrorPolicy
	Workers int // dates evaluated concurrently; <=1 means sequential
	// Calendar filters which dates evaluate at all, e.g. trading days only.
	// Nil means every calendar day in the range.
	Calendar func(time.Time) bool
}

// DateResult pairs one date with its table or its error.
type DateResult struct {
	Date  time.Time
	Table *ResultTable
	Err   error
}

// Run evaluates the pipeline once per date in [start, end] inclusive and
// returns results in ascending date order. Dates are independent; with
// Workers > 1 they evaluate in parallel, each on its own evaluator so no
// memo state is shared.
func Run(ctx context.Context, src Source, p *Pipeline, start, end time.Time, opts RunOptions) ([]DateResult, error) {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil, fmt.Errorf("run %q: end %s before start %s",
			p.Name, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if opts.Calendar != nil && !opts.Calendar(d) {
			continue
		}
		dates = append(dates, d)
	}

	results := make([]DateResult, len(dates))
	if opts.Workers <= 1 {
		for i, d := range dates {
			table, err := EvaluateDate(ctx, src, p, d)
			results[i] = DateResult{Date: d, Table: table, Err: err}
			if err != nil && opts.Policy == AbortAll {
				return nil, fmt.Errorf("run %q at %s: %w", p.Name, d.Format("2006-01-02"), err)
			}
		}
		return results, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct {
		idx  int
		date time.Time
	}
	tasks := make(chan task)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				table, err := EvaluateDate(runCtx, src, p, t.date)
				results[t.idx] = DateResult{Date: t.date, Table: table, Err: err}
				if err != nil && opts.Policy == AbortAll {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("run %q at %s: %w",
							p.Name, t.date.Format("2006-01-02"), err)
						cancel()
					})
				}
			}
		}()
	}

	for i, d := range dates {
		select {
		case tasks <- task{idx: i, date: d}:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
