package app

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/store"
	"github.com/roach88/petitions/internal/tiers"
	"github.com/roach88/petitions/internal/validate"
)

// EditPlan is what an edit would change.
type EditPlan struct {
	Baseline petition.Petition
	Patch    api.PetitionPatch
	Tiers    tiers.Plan
}

// Empty reports whether the edit changes nothing.
func (p EditPlan) Empty() bool {
	return p.Patch.Empty() && p.Tiers.Empty()
}

// EditResult reports an applied edit.
type EditResult struct {
	Plan    EditPlan
	Report  tiers.Report
	Patched bool
	// RunID names the journal entry, empty when no tier changed.
	RunID string
}

// PlanEdit validates draft against a freshly fetched petition and returns
// the changes EditPetition would make, without making them.
func (a *App) PlanEdit(ctx context.Context, sess petition.Session, id int, draft validate.PetitionDraft) (EditPlan, error) {
	p, err := a.ownedPetition(ctx, sess, id)
	if err != nil {
		return EditPlan{}, err
	}
	if err := validate.Petition(draft); err != nil {
		return EditPlan{}, err
	}
	if err := tiers.CheckEdited(p.SupportTiers, draft.Tiers); err != nil {
		return EditPlan{}, err
	}
	return EditPlan{
		Baseline: p,
		Patch:    petitionPatch(p, draft),
		Tiers:    tiers.Diff(p.SupportTiers, draft.Tiers),
	}, nil
}

// EditDraft returns a petition the session user owns as an edit draft, its
// tiers changed through a tiers.Edit session.
func (a *App) EditDraft(ctx context.Context, sess petition.Session, id int, changes tiers.Changes) (validate.PetitionDraft, error) {
	p, err := a.ownedPetition(ctx, sess, id)
	if err != nil {
		return validate.PetitionDraft{}, err
	}
	d := validate.PetitionDraft{Title: p.Title, Description: p.Description, CategoryID: p.CategoryID}
	if d.Tiers, err = ChangeTiers(p.SupportTiers, changes); err != nil {
		return validate.PetitionDraft{}, err
	}
	return d, nil
}

// ChangeTiers returns base with changes made to it. base is not modified.
func ChangeTiers(base []petition.SupportTier, changes tiers.Changes) ([]petition.SupportTier, error) {
	e := tiers.NewEdit(base)
	if err := e.Apply(changes); err != nil {
		return nil, err
	}
	return e.Tiers(), nil
}

// EditPetition applies draft to a petition the session user owns: the
// petition's own fields first, then its support tiers, then the image when
// one is given. Tier changes are journalled whether or not they all
// succeeded.
//
// On a tier failure the returned result still lists the steps that were
// applied; the error is a *tiers.StepError.
func (a *App) EditPetition(ctx context.Context, sess petition.Session, id int, draft validate.PetitionDraft, image []byte) (EditResult, error) {
	var contentType string
	if len(image) > 0 {
		ct, err := validate.Image(image)
		if err != nil {
			return EditResult{}, err
		}
		contentType = ct
	}

	plan, err := a.PlanEdit(ctx, sess, id, draft)
	if err != nil {
		return EditResult{}, err
	}
	res := EditResult{Plan: plan, Report: tiers.Report{PetitionID: id}}

	if !plan.Patch.Empty() {
		if err := a.client.UpdatePetition(ctx, sess, id, plan.Patch); err != nil {
			return res, err
		}
		res.Patched = true
	}

	if !plan.Tiers.Empty() {
		started := a.now()
		rec := tiers.NewReconciler(a.client, sess, tiers.WithLogger(a.logger))
		res.Report, err = rec.Apply(ctx, id, plan.Tiers)
		res.RunID = a.journal(ctx, sess, res.Report, started, err)
		if err != nil {
			return res, err
		}
	}

	if contentType != "" {
		if err := a.client.PutPetitionImage(ctx, sess, id, api.Image{Data: image, ContentType: contentType}); err != nil {
			return res, err
		}
	}
	return res, nil
}

// journal records a reconciliation run. A journal failure is logged and
// does not fail the edit, which has already reached the API.
func (a *App) journal(ctx context.Context, sess petition.Session, rep tiers.Report, started time.Time, runErr error) string {
	run := store.Run{
		ID:         a.ids.NewID(),
		PetitionID: rep.PetitionID,
		UserID:     sess.UserID,
		StartedAt:  started,
		FinishedAt: a.now(),
		Steps:      make([]store.Step, 0, len(rep.Steps)),
	}
	if runErr != nil {
		run.Err = runErr.Error()
	}
	for _, s := range rep.Steps {
		step := store.Step{
			Kind:    string(s.Kind),
			TierID:  s.Tier.ID,
			Title:   s.Tier.Title,
			Outcome: string(s.Outcome),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		run.Steps = append(run.Steps, step)
	}

	// The journal must be written even when ctx was cancelled mid-run.
	if err := a.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		a.logger.Warn("journal reconciliation run failed", "run_id", run.ID, "petition_id", run.PetitionID, "error", err)
		return ""
	}
	return run.ID
}

// History lists the journalled tier edits of a petition, newest first.
func (a *App) History(ctx context.Context, petitionID, limit int) ([]store.Run, error) {
	return a.store.ListRuns(ctx, petitionID, limit)
}

func petitionPatch(p petition.Petition, d validate.PetitionDraft) api.PetitionPatch {
	var patch api.PetitionPatch
	if d.Title != p.Title {
		patch.Title = &d.Title
	}
	if d.Description != p.Description {
		patch.Description = &d.Description
	}
	if d.CategoryID != p.CategoryID {
		patch.CategoryID = &d.CategoryID
	}
	return patch
}

// IsInputError reports whether err was raised by input checks before any
// change reached the API.
func IsInputError(err error) bool {
	return validate.IsError(err) ||
		errors.Is(err, tiers.ErrNoTiers) ||
		errors.Is(err, tiers.ErrTooManyTiers) ||
		errors.Is(err, tiers.ErrDuplicateTier) ||
		errors.Is(err, tiers.ErrUnknownTier) ||
		errors.Is(err, tiers.ErrLastTier) ||
		errors.Is(err, tiers.ErrTierIndex) ||
		errors.Is(err, ErrNotLoggedIn) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrOwnPetition) ||
		errors.Is(err, ErrNoSuchTier)
}
