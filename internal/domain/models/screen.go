package models

import "time"

// ResultRecord is one flattened screen output cell: a single (date, asset,
// output) value from a screen run. Nil Value means the output was null for
// that asset (for example a masked-out factor).
type ResultRecord struct {
	Screen string    `json:"screen"`
	Date   time.Time `json:"date"`
	Asset  string    `json:"asset"`
	Output string    `json:"output"`
	Value  *float64  `json:"value"`
}

// DateTable is the per-date view of a screen run returned over HTTP.
type DateTable struct {
	Date    string                    `json:"date"`
	Columns []string                  `json:"columns"`
	Rows    map[string]map[string]any `json:"rows"`
	Error   string                    `json:"error,omitempty"`
}

// RunResult is the response body for a synchronous screen run.
type RunResult struct {
	Screen string      `json:"screen"`
	From   string      `json:"from"`
	To     string      `json:"to"`
	Dates  []DateTable `json:"dates"`
}

// ScreenInfo describes a registered screen for the listing endpoint.
type ScreenInfo struct {
	Name    string   `json:"name"`
	Outputs []string `json:"outputs"`
}

// Job states for asynchronous screen runs.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobStatus is the persisted state of an asynchronous screen run.
type JobStatus struct {
	ID         string     `json:"id"`
	Screen     string     `json:"screen"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Result     *RunResult `json:"result,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
