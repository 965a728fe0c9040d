package harness

import (
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/tiers"
)

// StepTrace is one reconciliation step as recorded in a trace.
type StepTrace struct {
	Op      string `json:"op"`
	TierID  int    `json:"tier_id,omitempty"`
	Title   string `json:"title"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// TierTrace is a support tier left on the server.
type TierTrace struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
}

// Trace is everything observable about one run.
type Trace struct {
	Calls    []string    `json:"calls"`
	Steps    []StepTrace `json:"steps"`
	Tiers    []TierTrace `json:"tiers"`
	MinTiers int         `json:"min_tiers"`
	MaxTiers int         `json:"max_tiers"`
	Error    string      `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace Trace `json:"trace"`

	// Report is the reconciler's report, kept for callers that want more
	// than the trace shows.
	Report tiers.Report `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  Trace{Calls: []string{}, Steps: []StepTrace{}, Tiers: []TierTrace{}},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func stepTrace(s tiers.Step) StepTrace {
	st := StepTrace{
		Op:      string(s.Kind),
		TierID:  s.Tier.ID,
		Title:   s.Tier.Title,
		Outcome: string(s.Outcome),
	}
	if s.Err != nil {
		st.Error = s.Err.Error()
	}
	return st
}

func tierTrace(t petition.SupportTier) TierTrace {
	return TierTrace{ID: t.ID, Title: t.Title, Description: t.Description, Cost: t.Cost}
}
