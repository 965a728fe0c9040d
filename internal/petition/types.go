package petition

import "time"

// MaxSupportTiers is the most support tiers a petition may carry.
const MaxSupportTiers = 3

// MaxTierCost is the largest cost accepted for a support tier.
const MaxTierCost = 9999999

// SupportTier is a named pledge level on a petition.
// ID is zero until the API has persisted the tier.
type SupportTier struct {
	ID          int    `json:"supportTierId,omitempty" yaml:"id,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Cost        int    `json:"cost" yaml:"cost"`
}

// Persisted reports whether the tier already exists on the server.
func (t SupportTier) Persisted() bool {
	return t.ID != 0
}

// SameContent reports whether two tiers carry identical user-editable fields.
// IDs are not compared.
func (t SupportTier) SameContent(o SupportTier) bool {
	return t.Title == o.Title && t.Description == o.Description && t.Cost == o.Cost
}

// PetitionSummary is one row of a petition listing.
type PetitionSummary struct {
	ID                 int       `json:"petitionId"`
	Title              string    `json:"title"`
	CategoryID         int       `json:"categoryId"`
	OwnerID            int       `json:"ownerId"`
	OwnerFirstName     string    `json:"ownerFirstName"`
	OwnerLastName      string    `json:"ownerLastName"`
	NumberOfSupporters int       `json:"numberOfSupporters"`
	CreationDate       time.Time `json:"creationDate"`
	SupportingCost     int       `json:"supportingCost"`
}

// OwnerName returns the owner's display name.
func (p PetitionSummary) OwnerName() string {
	return fullName(p.OwnerFirstName, p.OwnerLastName)
}

// Petition is the full petition record returned by the detail endpoint.
type Petition struct {
	PetitionSummary
	Description  string        `json:"description"`
	MoneyRaised  int           `json:"moneyRaised"`
	SupportTiers []SupportTier `json:"supportTiers"`
}

// Tier returns the support tier with the given ID.
func (p Petition) Tier(id int) (SupportTier, bool) {
	for _, t := range p.SupportTiers {
		if t.ID == id {
			return t, true
		}
	}
	return SupportTier{}, false
}

// Supporter is one pledge made against a petition.
type Supporter struct {
	SupportID          int       `json:"supportId"`
	SupportTierID      int       `json:"supportTierId"`
	Message            string    `json:"message,omitempty"`
	SupporterID        int       `json:"supporterId"`
	SupporterFirstName string    `json:"supporterFirstName"`
	SupporterLastName  string    `json:"supporterLastName"`
	Timestamp          time.Time `json:"timestamp"`
}

// Name returns the supporter's display name.
func (s Supporter) Name() string {
	return fullName(s.SupporterFirstName, s.SupporterLastName)
}

// User is a registered account. Email is only returned to its owner.
type User struct {
	ID        int    `json:"userId,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

// Name returns the user's display name.
func (u User) Name() string {
	return fullName(u.FirstName, u.LastName)
}

// Category classifies petitions.
type Category struct {
	ID   int    `json:"categoryId"`
	Name string `json:"name"`
}

// CategoryNames indexes categories by ID.
func CategoryNames(cats []Category) map[int]string {
	names := make(map[int]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}

func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
