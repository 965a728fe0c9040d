package tiers

import (
	"errors"
	"fmt"

	"github.com/roach88/petitions/internal/petition"
)

// Input errors returned by Reconcile and the Edit helpers before any API call.
var (
	ErrNoTiers       = errors.New("a petition needs at least one support tier")
	ErrTooManyTiers  = fmt.Errorf("a petition can have at most %d support tiers", petition.MaxSupportTiers)
	ErrDuplicateTier = errors.New("support tier listed twice")
	ErrUnknownTier   = errors.New("support tier does not belong to this petition")
	ErrLastTier      = errors.New("cannot remove the only support tier")
	ErrTierIndex     = errors.New("support tier index out of range")
)

// StepError reports the operation that aborted a plan.
type StepError struct {
	Kind       OpKind
	PetitionID int
	Tier       petition.SupportTier
	Err        error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Tier.ID != 0 {
		return fmt.Sprintf("%s support tier %d (%q) on petition %d: %v", e.Kind, e.Tier.ID, e.Tier.Title, e.PetitionID, e.Err)
	}
	return fmt.Sprintf("%s support tier %q on petition %d: %v", e.Kind, e.Tier.Title, e.PetitionID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
