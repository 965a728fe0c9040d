package tiers

import (
	"errors"
	"fmt"

	"github.com/roach88/petitions/internal/petition"
)

// Edit is the locally mutated tier set of one edit session.
// It starts as a copy of the baseline and is never shared.
type Edit struct {
	tiers []petition.SupportTier
}

// NewEdit opens an edit session over a copy of baseline.
func NewEdit(baseline []petition.SupportTier) *Edit {
	return &Edit{tiers: append([]petition.SupportTier(nil), baseline...)}
}

// Tiers returns a copy of the current edited set.
func (e *Edit) Tiers() []petition.SupportTier {
	return append([]petition.SupportTier(nil), e.tiers...)
}

// Len returns the number of tiers in the edited set.
func (e *Edit) Len() int {
	return len(e.tiers)
}

// Add appends a new, unpersisted tier.
func (e *Edit) Add(t petition.SupportTier) error {
	if len(e.tiers) >= petition.MaxSupportTiers {
		return ErrTooManyTiers
	}
	t.ID = 0
	e.tiers = append(e.tiers, t)
	return nil
}

// Remove drops the tier at index i. The only remaining tier cannot be removed.
func (e *Edit) Remove(i int) error {
	if i < 0 || i >= len(e.tiers) {
		return fmt.Errorf("%w: %d", ErrTierIndex, i)
	}
	if len(e.tiers) == 1 {
		return ErrLastTier
	}
	e.tiers = append(e.tiers[:i], e.tiers[i+1:]...)
	return nil
}

// Set replaces the fields of the tier at index i, keeping its ID.
func (e *Edit) Set(i int, t petition.SupportTier) error {
	if i < 0 || i >= len(e.tiers) {
		return fmt.Errorf("%w: %d", ErrTierIndex, i)
	}
	t.ID = e.tiers[i].ID
	e.tiers[i] = t
	return nil
}

// IndexOf returns the index of the tier with the given ID, or -1.
func (e *Edit) IndexOf(id int) int {
	for i, t := range e.tiers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Changes are tier edits given one at a time rather than as a full set.
type Changes struct {
	// Set replaces the fields of the tier with the same ID.
	Set []petition.SupportTier
	// Remove lists tier IDs to drop.
	Remove []int
	Add    []petition.SupportTier
}

// Empty reports whether c changes nothing.
func (c Changes) Empty() bool {
	return len(c.Set) == 0 && len(c.Remove) == 0 && len(c.Add) == 0
}

// Apply makes c on the edit session: sets, then removals, then additions.
// A removal refused with ErrLastTier is tried again once the additions are
// in, so the only tier can be swapped for a new one.
func (e *Edit) Apply(c Changes) error {
	for _, t := range c.Set {
		i := e.indexOfPersisted(t.ID)
		if i < 0 {
			return fmt.Errorf("%w: id %d", ErrUnknownTier, t.ID)
		}
		if err := e.Set(i, t); err != nil {
			return err
		}
	}

	var deferred []int
	for _, id := range c.Remove {
		err := e.removeID(id)
		if errors.Is(err, ErrLastTier) {
			deferred = append(deferred, id)
			continue
		}
		if err != nil {
			return err
		}
	}
	for _, t := range c.Add {
		if err := e.Add(t); err != nil {
			return err
		}
	}
	for _, id := range deferred {
		if err := e.removeID(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Edit) removeID(id int) error {
	i := e.indexOfPersisted(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrUnknownTier, id)
	}
	return e.Remove(i)
}

// indexOfPersisted is IndexOf that never matches a newly added tier.
func (e *Edit) indexOfPersisted(id int) int {
	if id == 0 {
		return -1
	}
	return e.IndexOf(id)
}
