package models

// Run statuses reported to the invoking runtime.
const (
	StatusOK    = "ok"
	StatusNoop  = "noop"
	StatusError = "error"
)

// Execution modes for one rollup definition.
const (
	ModeFullRebuild = "full-rebuild"
	ModeTargeted    = "targeted"
)

// SummaryItem is the per-definition outcome of one engine run.
//
// Processed counts the distinct parent ids considered; Updated counts those
// successfully patched. Skipped carries a reason when the definition was not
// executed at all (e.g. no relation ids found in a targeted trigger).
type SummaryItem struct {
	ParentObject  string `json:"parentObject"`
	Processed     int    `json:"processed"`
	Updated       int    `json:"updated"`
	Mode          string `json:"mode"`
	RelationField string `json:"relationField"`
	Skipped       string `json:"skipped,omitempty"`
}

// RunTotals aggregates the per-definition counters of a run.
type RunTotals struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
}

// RunResult is the structured outcome of one engine invocation, returned to
// the invoking runtime as-is. Reason explains a noop, Message an error.
type RunResult struct {
	Status  string        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
	TookMs  int64         `json:"tookMs"`
	Totals  *RunTotals    `json:"totals,omitempty"`
	Details []SummaryItem `json:"details,omitempty"`
}
