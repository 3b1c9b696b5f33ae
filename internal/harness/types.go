package harness

import "github.com/roach88/boardsync/internal/ir"

// TraceEvent records the fate of one output record.
type TraceEvent struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Decision  string `json:"decision"`
	Protected bool   `json:"protected,omitempty"`
	Key       string `json:"key"`
	Version   int64  `json:"version"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Records is the merged scene.
	Records []ir.Record `json:"records"`

	// Trace holds one event per output record in output order.
	Trace []TraceEvent `json:"trace"`

	// Repaired lists output positions whose key the merge rewrote.
	Repaired []int `json:"repaired"`

	// Errors contains assertion and check failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Repaired: []int{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
