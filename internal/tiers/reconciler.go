package tiers

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

// TierAPI is the slice of the petitions API the reconciler needs.
// *api.Client implements it.
type TierAPI interface {
	CreateSupportTier(ctx context.Context, sess petition.Session, petitionID int, t petition.SupportTier) (petition.SupportTier, error)
	UpdateSupportTier(ctx context.Context, sess petition.Session, petitionID, tierID int, p api.TierPatch) error
	DeleteSupportTier(ctx context.Context, sess petition.Session, petitionID, tierID int) error
}

// OpKind names a tier operation.
type OpKind string

// Operation kinds.
const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Outcome records what happened to one step.
type Outcome string

// Step outcomes.
const (
	// OutcomeApplied means the API accepted the operation.
	OutcomeApplied Outcome = "applied"
	// OutcomeRejected means the API refused a delete of the last tier and
	// the delete was retried after a create.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means the operation failed and aborted the plan.
	OutcomeFailed Outcome = "failed"
)

// Step is one API call made while applying a plan.
type Step struct {
	Kind    OpKind
	Tier    petition.SupportTier
	Outcome Outcome
	Err     error
}

// Report lists the steps taken while applying a plan, in execution order.
type Report struct {
	PetitionID int
	Steps      []Step
}

// Applied returns the steps the API accepted.
func (r Report) Applied() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Outcome == OutcomeApplied {
			out = append(out, s)
		}
	}
	return out
}

// Failed returns the step that aborted the plan, if any.
func (r Report) Failed() (Step, bool) {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return s, true
		}
	}
	return Step{}, false
}

// Reconciler applies plans for one session.
type Reconciler struct {
	api        TierAPI
	session    petition.Session
	logger     *slog.Logger
	isLastTier func(error) bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLastTierClassifier overrides how a last-tier rejection is recognised.
func WithLastTierClassifier(fn func(error) bool) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.isLastTier = fn
		}
	}
}

// NewReconciler creates a reconciler acting on behalf of sess.
func NewReconciler(client TierAPI, sess petition.Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:        client,
		session:    sess,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		isLastTier: api.IsLastTierRejection,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile checks edited, diffs it against baseline and applies the plan.
func (r *Reconciler) Reconcile(ctx context.Context, petitionID int, baseline, edited []petition.SupportTier) (Report, error) {
	if err := CheckEdited(baseline, edited); err != nil {
		return Report{PetitionID: petitionID}, err
	}
	return r.Apply(ctx, petitionID, Diff(baseline, edited))
}

// Apply issues plan against the API: updates, then deletes (creating one
// pending tier first when the API refuses to remove the last one), then the
// remaining creates.
//
// The returned Report is complete even on error.
func (r *Reconciler) Apply(ctx context.Context, petitionID int, plan Plan) (Report, error) {
	rep := Report{PetitionID: petitionID}
	log := r.logger.With("petition_id", petitionID)
	log.Info("applying tier plan",
		"creates", len(plan.Create),
		"updates", len(plan.Update),
		"deletes", len(plan.Delete),
	)

	for _, u := range plan.Update {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := r.api.UpdateSupportTier(ctx, r.session, petitionID, u.After.ID, u.Patch())
		if err != nil {
			return rep, r.fail(&rep, OpUpdate, u.After, err)
		}
		r.record(&rep, log, OpUpdate, u.After)
	}

	pending := append([]petition.SupportTier(nil), plan.Create...)
	for _, d := range plan.Delete {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := r.api.DeleteSupportTier(ctx, r.session, petitionID, d.ID)
		if err != nil && r.isLastTier(err) && len(pending) > 0 {
			rep.Steps = append(rep.Steps, Step{Kind: OpDelete, Tier: d, Outcome: OutcomeRejected, Err: err})
			log.Info("delete refused for last tier, creating replacement first", "tier_id", d.ID, "replacement", pending[0].Title)

			created, cerr := r.api.CreateSupportTier(ctx, r.session, petitionID, pending[0])
			if cerr != nil {
				return rep, r.fail(&rep, OpCreate, pending[0], cerr)
			}
			pending = pending[1:]
			r.record(&rep, log, OpCreate, created)

			err = r.api.DeleteSupportTier(ctx, r.session, petitionID, d.ID)
		}
		if err != nil {
			return rep, r.fail(&rep, OpDelete, d, err)
		}
		r.record(&rep, log, OpDelete, d)
	}

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		created, err := r.api.CreateSupportTier(ctx, r.session, petitionID, c)
		if err != nil {
			return rep, r.fail(&rep, OpCreate, c, err)
		}
		r.record(&rep, log, OpCreate, created)
	}

	log.Info("tier plan applied", "steps", len(rep.Steps))
	return rep, nil
}

func (r *Reconciler) record(rep *Report, log *slog.Logger, kind OpKind, t petition.SupportTier) {
	rep.Steps = append(rep.Steps, Step{Kind: kind, Tier: t, Outcome: OutcomeApplied})
	log.Debug("tier step applied", "op", string(kind), "tier_id", t.ID, "title", t.Title)
}

func (r *Reconciler) fail(rep *Report, kind OpKind, t petition.SupportTier, err error) error {
	rep.Steps = append(rep.Steps, Step{Kind: kind, Tier: t, Outcome: OutcomeFailed, Err: err})
	r.logger.Warn("tier step failed",
		"petition_id", rep.PetitionID,
		"op", string(kind),
		"tier_id", t.ID,
		"title", t.Title,
		"error", err,
	)
	return &StepError{Kind: kind, PetitionID: rep.PetitionID, Tier: t, Err: err}
}

// CheckEdited verifies the edited set can be reconciled against baseline:
// between one and MaxSupportTiers tiers, no ID listed twice, and every ID
// belonging to the baseline.
func CheckEdited(baseline, edited []petition.SupportTier) error {
	if len(edited) == 0 {
		return ErrNoTiers
	}
	if len(edited) > petition.MaxSupportTiers {
		return ErrTooManyTiers
	}

	known := make(map[int]bool, len(baseline))
	for _, t := range baseline {
		known[t.ID] = true
	}
	seen := make(map[int]bool, len(edited))
	for _, t := range edited {
		if !t.Persisted() {
			continue
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: id %d", ErrDuplicateTier, t.ID)
		}
		seen[t.ID] = true
		if !known[t.ID] {
			return fmt.Errorf("%w: id %d", ErrUnknownTier, t.ID)
		}
	}
	return nil
}
