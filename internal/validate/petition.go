package validate

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/petitions/internal/petition"
)

// PetitionDraft is the user-editable content of a petition.
// Tiers with a zero ID are new; the others must belong to the petition.
type PetitionDraft struct {
	Title       string                 `json:"title" yaml:"title" validate:"notblank,max=128"`
	Description string                 `json:"description" yaml:"description" validate:"notblank,max=1024"`
	CategoryID  int                    `json:"categoryId" yaml:"category" validate:"required"`
	Image       string                 `json:"image,omitempty" yaml:"image,omitempty" validate:"-"`
	Tiers       []petition.SupportTier `json:"supportTiers" yaml:"tiers" validate:"-"`
}

var petitionMessages = messages{
	"title.notblank":       "Petition title cannot be blank.",
	"title.max":            "Petition title cannot exceed 128 characters.",
	"description.notblank": "Petition description cannot be blank.",
	"description.max":      "Petition description cannot exceed 1024 characters.",
	"categoryId.required":  "Please select a category.",
}

// tierForm mirrors petition.SupportTier with validation rules.
type tierForm struct {
	Title       string `json:"title" validate:"notblank,max=128"`
	Description string `json:"description" validate:"notblank,max=1024"`
	Cost        int    `json:"cost" validate:"min=0,max=9999999"`
}

var tierMessages = messages{
	"title.notblank":       "Support tier titles cannot be blank.",
	"title.max":            "Support tier title cannot exceed 128 characters.",
	"description.notblank": "Support tier descriptions cannot be blank.",
	"description.max":      "Support tier description cannot exceed 1024 characters.",
	"cost.min":             "Support tier cost cannot be negative.",
	"cost.max":             fmt.Sprintf("Support tier cost cannot exceed %d.", petition.MaxTierCost),
}

// Petition checks a draft's own fields and its support tiers.
func Petition(d PetitionDraft) error {
	if err := check(d, petitionMessages); err != nil {
		return err
	}
	return Tiers(d.Tiers)
}

// Tiers checks a support tier set: one to three tiers, each complete, with
// titles unique ignoring case and Unicode normalisation.
func Tiers(ts []petition.SupportTier) error {
	switch {
	case len(ts) == 0:
		return &Error{Field: "supportTiers", Message: "A petition needs at least one support tier."}
	case len(ts) > petition.MaxSupportTiers:
		return &Error{Field: "supportTiers", Message: fmt.Sprintf("Cannot have more than %d support tiers.", petition.MaxSupportTiers)}
	}

	for i, t := range ts {
		err := check(tierForm{Title: t.Title, Description: t.Description, Cost: t.Cost}, tierMessages)
		if verr, ok := err.(*Error); ok {
			verr.Field = fmt.Sprintf("supportTiers[%d].%s", i, verr.Field)
			return verr
		}
		if err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(ts))
	for i, t := range ts {
		key := TitleKey(t.Title)
		if seen[key] {
			return &Error{Field: fmt.Sprintf("supportTiers[%d].title", i), Message: "Support tier titles must be unique."}
		}
		seen[key] = true
	}
	return nil
}

var fold = cases.Fold()

// TitleKey is the comparison key for tier titles: trimmed, NFC-normalised
// and case-folded.
func TitleKey(title string) string {
	return fold.String(norm.NFC.String(strings.TrimSpace(title)))
}
