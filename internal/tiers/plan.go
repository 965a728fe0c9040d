package tiers

import (
	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

// TierUpdate pairs a persisted tier's baseline with its edited form.
type TierUpdate struct {
	Before petition.SupportTier
	After  petition.SupportTier
}

// Patch returns only the fields that changed.
func (u TierUpdate) Patch() api.TierPatch {
	var p api.TierPatch
	if u.After.Title != u.Before.Title {
		title := u.After.Title
		p.Title = &title
	}
	if u.After.Description != u.Before.Description {
		desc := u.After.Description
		p.Description = &desc
	}
	if u.After.Cost != u.Before.Cost {
		cost := u.After.Cost
		p.Cost = &cost
	}
	return p
}

// Plan is the set of operations turning a baseline into an edited set.
// Within each slice the order carries no meaning.
type Plan struct {
	Create []petition.SupportTier
	Update []TierUpdate
	Delete []petition.SupportTier
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Len returns the number of operations in the plan.
func (p Plan) Len() int {
	return len(p.Create) + len(p.Update) + len(p.Delete)
}

// Diff computes the plan transforming baseline into edited.
//
// Edited tiers carrying an ID unknown to the baseline are ignored here;
// Reconcile rejects such input before diffing.
func Diff(baseline, edited []petition.SupportTier) Plan {
	base := make(map[int]petition.SupportTier, len(baseline))
	for _, t := range baseline {
		if t.Persisted() {
			base[t.ID] = t
		}
	}

	var plan Plan
	kept := make(map[int]bool, len(edited))
	for _, t := range edited {
		if !t.Persisted() {
			plan.Create = append(plan.Create, t)
			continue
		}
		before, ok := base[t.ID]
		if !ok {
			continue
		}
		kept[t.ID] = true
		if !before.SameContent(t) {
			plan.Update = append(plan.Update, TierUpdate{Before: before, After: t})
		}
	}

	for _, t := range baseline {
		if t.Persisted() && !kept[t.ID] {
			plan.Delete = append(plan.Delete, t)
		}
	}
	return plan
}
