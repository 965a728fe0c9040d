package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"slices"
	"strings"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/apitest"
	"github.com/roach88/petitions/internal/tiers"
)

// Harness executes scenarios. Each run gets its own fake API server.
type Harness struct {
	logger   *slog.Logger
	tierBody bool
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes reconciler and client logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCreatedTierBody makes the fake API return created tiers in the
// response body instead of an empty 201.
func WithCreatedTierBody() Option {
	return func(h *Harness) {
		h.tierBody = true
	}
}

// New creates a harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run seeds a fresh server, reconciles the scenario's edited tiers and
// evaluates its expectations.
//
// The returned error covers harness failures only. A reconciliation error
// is part of the Result and is checked against Expect.Error.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	var srvOpts []apitest.Option
	if h.tierBody {
		srvOpts = append(srvOpts, apitest.WithCreatedTierBody())
	}
	srv := apitest.New(srvOpts...)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	owner := srv.AddUser("Harness", "Owner", "owner@example.com", "password")
	sess := srv.Login(owner)
	p := srv.AddPetition(owner, scenario.Name, scenario.Description, 1, scenario.Baseline)
	if len(p.SupportTiers) != len(scenario.Baseline) {
		return nil, fmt.Errorf("seeded %d tiers, want %d", len(p.SupportTiers), len(scenario.Baseline))
	}

	if len(scenario.Supporters) > 0 {
		backer := srv.AddUser("Harness", "Supporter", "supporter@example.com", "password")
		for _, sup := range scenario.Supporters {
			srv.AddSupporter(p.ID, backer, p.SupportTiers[sup.Tier-1].ID, sup.Message)
		}
	}
	for _, f := range scenario.Fail {
		srv.FailNext(f.Method, f.Path, f.Status, f.Message)
	}
	srv.ResetCalls()

	client := api.New(ts.URL+apitest.BasePath, api.WithLogger(h.logger))
	rec := tiers.NewReconciler(client, sess, tiers.WithLogger(h.logger))

	h.logger.Info("running scenario", "scenario", scenario.Name, "baseline", len(p.SupportTiers), "edited", len(scenario.Edited))
	report, recErr := rec.Reconcile(ctx, p.ID, p.SupportTiers, scenario.Edited)

	result := NewResult()
	result.Report = report
	result.Trace.Calls = append(result.Trace.Calls, srv.Calls()...)
	for _, s := range report.Steps {
		result.Trace.Steps = append(result.Trace.Steps, stepTrace(s))
	}
	for _, t := range srv.Tiers(p.ID) {
		result.Trace.Tiers = append(result.Trace.Tiers, tierTrace(t))
	}
	result.Trace.MinTiers, result.Trace.MaxTiers = srv.TierBounds(p.ID)
	if recErr != nil {
		result.Trace.Error = recErr.Error()
	}

	checkExpect(result, scenario.Expect)
	for _, msg := range EvaluateAssertions(result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func checkExpect(result *Result, want Expect) {
	got := result.Trace
	switch {
	case want.Error == "" && got.Error != "":
		result.AddError(fmt.Sprintf("unexpected error: %s", got.Error))
	case want.Error != "" && got.Error == "":
		result.AddError(fmt.Sprintf("expected error containing %q, reconciliation succeeded", want.Error))
	case want.Error != "" && !strings.Contains(got.Error, want.Error):
		result.AddError(fmt.Sprintf("expected error containing %q, got %q", want.Error, got.Error))
	}

	titles := make([]string, len(got.Tiers))
	for i, t := range got.Tiers {
		titles[i] = t.Title
	}
	if !slices.Equal(titles, want.Tiers) {
		result.AddError(fmt.Sprintf("final tiers: expected %v, got %v", want.Tiers, titles))
	}

	if want.MinTiers != 0 && got.MinTiers != want.MinTiers {
		result.AddError(fmt.Sprintf("fewest tiers: expected %d, got %d", want.MinTiers, got.MinTiers))
	}
	if want.MaxTiers != 0 && got.MaxTiers != want.MaxTiers {
		result.AddError(fmt.Sprintf("most tiers: expected %d, got %d", want.MaxTiers, got.MaxTiers))
	}
}
