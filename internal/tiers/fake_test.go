package tiers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

// fakeTierAPI holds one petition's tiers in memory and enforces the API's
// cardinality rules.
type fakeTierAPI struct {
	tiers    []petition.SupportTier
	nextID   int
	calls    []string
	minCount int
	maxCount int

	// failOn makes the named call ("create Gold", "delete 2", ...) fail.
	failOn map[string]error
}

func newFake(baseline ...petition.SupportTier) *fakeTierAPI {
	f := &fakeTierAPI{
		tiers:    append([]petition.SupportTier(nil), baseline...),
		nextID:   100,
		minCount: len(baseline),
		maxCount: len(baseline),
		failOn:   map[string]error{},
	}
	return f
}

func (f *fakeTierAPI) observe() {
	if n := len(f.tiers); n < f.minCount {
		f.minCount = n
	}
	if n := len(f.tiers); n > f.maxCount {
		f.maxCount = n
	}
}

func (f *fakeTierAPI) CreateSupportTier(_ context.Context, _ petition.Session, _ int, t petition.SupportTier) (petition.SupportTier, error) {
	key := "create " + t.Title
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return petition.SupportTier{}, err
	}
	if len(f.tiers) >= petition.MaxSupportTiers {
		return petition.SupportTier{}, &api.Error{Status: http.StatusForbidden, Message: "Petition already has 3 support tiers"}
	}
	t.ID = f.nextID
	f.nextID++
	f.tiers = append(f.tiers, t)
	f.observe()
	return t, nil
}

func (f *fakeTierAPI) UpdateSupportTier(_ context.Context, _ petition.Session, _ int, tierID int, p api.TierPatch) error {
	key := fmt.Sprintf("update %d", tierID)
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return err
	}
	for i := range f.tiers {
		if f.tiers[i].ID != tierID {
			continue
		}
		if p.Title != nil {
			f.tiers[i].Title = *p.Title
		}
		if p.Description != nil {
			f.tiers[i].Description = *p.Description
		}
		if p.Cost != nil {
			f.tiers[i].Cost = *p.Cost
		}
		return nil
	}
	return &api.Error{Status: http.StatusNotFound}
}

func (f *fakeTierAPI) DeleteSupportTier(_ context.Context, _ petition.Session, _ int, tierID int) error {
	key := fmt.Sprintf("delete %d", tierID)
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return err
	}
	if len(f.tiers) == 1 {
		return &api.Error{Status: http.StatusForbidden, Message: "Cannot remove a support tier if it is the only one for a petition"}
	}
	for i, t := range f.tiers {
		if t.ID == tierID {
			f.tiers = append(f.tiers[:i], f.tiers[i+1:]...)
			f.observe()
			return nil
		}
	}
	return &api.Error{Status: http.StatusNotFound}
}

// contents strips IDs so final state can be compared with an edited set.
func contents(ts []petition.SupportTier) []petition.SupportTier {
	out := make([]petition.SupportTier, len(ts))
	for i, t := range ts {
		out[i] = petition.SupportTier{Title: t.Title, Description: t.Description, Cost: t.Cost}
	}
	return out
}

var errBoom = errors.New("connection reset")
