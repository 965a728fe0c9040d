package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/petitions/internal/petition"
)

// PetitionPage is one page of a petition listing.
type PetitionPage struct {
	Petitions []petition.PetitionSummary `json:"petitions"`
	Count     int                        `json:"count"`
}

// NewPetition is the payload of POST /petitions.
type NewPetition struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	CategoryID   int                    `json:"categoryId"`
	SupportTiers []petition.SupportTier `json:"supportTiers"`
}

// PetitionPatch is the payload of PATCH /petitions/{id}. Nil fields are omitted.
type PetitionPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  *int    `json:"categoryId,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p PetitionPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryID == nil
}

// TierPatch is the payload of PATCH /petitions/{id}/supportTiers/{tierId}.
// Nil fields are omitted.
type TierPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Cost        *int    `json:"cost,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TierPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Cost == nil
}

// NewSupport is the payload of POST /petitions/{id}/supporters.
type NewSupport struct {
	SupportTierID int    `json:"supportTierId"`
	Message       string `json:"message,omitempty"`
}

// ListPetitions fetches one page of petitions.
func (c *Client) ListPetitions(ctx context.Context, q Query) (PetitionPage, error) {
	var page PetitionPage
	if err := c.doJSON(ctx, http.MethodGet, "/petitions", petition.Session{}, q.Values(), nil, &page); err != nil {
		return PetitionPage{}, err
	}
	return page, nil
}

// GetPetition fetches a petition with its support tiers.
func (c *Client) GetPetition(ctx context.Context, id int) (petition.Petition, error) {
	var p petition.Petition
	if err := c.doJSON(ctx, http.MethodGet, petitionPath(id), petition.Session{}, nil, nil, &p); err != nil {
		return petition.Petition{}, err
	}
	return p, nil
}

// CreatePetition creates a petition and returns its ID.
func (c *Client) CreatePetition(ctx context.Context, sess petition.Session, np NewPetition) (int, error) {
	var out struct {
		PetitionID int `json:"petitionId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/petitions", sess, nil, np, &out); err != nil {
		return 0, err
	}
	return out.PetitionID, nil
}

// UpdatePetition patches a petition's own fields.
func (c *Client) UpdatePetition(ctx context.Context, sess petition.Session, id int, p PetitionPatch) error {
	return c.doJSON(ctx, http.MethodPatch, petitionPath(id), sess, nil, p, nil)
}

// DeletePetition deletes a petition owned by the session user.
func (c *Client) DeletePetition(ctx context.Context, sess petition.Session, id int) error {
	return c.doJSON(ctx, http.MethodDelete, petitionPath(id), sess, nil, nil, nil)
}

// Categories lists the petition categories.
func (c *Client) Categories(ctx context.Context) ([]petition.Category, error) {
	var cats []petition.Category
	if err := c.doJSON(ctx, http.MethodGet, "/petitions/categories", petition.Session{}, nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// GetPetitionImage fetches a petition's hero image.
func (c *Client) GetPetitionImage(ctx context.Context, id int) (Image, error) {
	return c.getImage(ctx, petitionPath(id)+"/image")
}

// PutPetitionImage replaces a petition's hero image.
func (c *Client) PutPetitionImage(ctx context.Context, sess petition.Session, id int, img Image) error {
	return c.putImage(ctx, sess, petitionPath(id)+"/image", img)
}

// Supporters lists the pledges made against a petition.
func (c *Client) Supporters(ctx context.Context, id int) ([]petition.Supporter, error) {
	var out []petition.Supporter
	if err := c.doJSON(ctx, http.MethodGet, petitionPath(id)+"/supporters", petition.Session{}, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Support pledges the session user to a petition at a tier.
func (c *Client) Support(ctx context.Context, sess petition.Session, id int, s NewSupport) error {
	return c.doJSON(ctx, http.MethodPost, petitionPath(id)+"/supporters", sess, nil, s, nil)
}

// CreateSupportTier adds a tier to a petition and returns it with its new ID.
//
// When the API answers without a body the petition is re-read and the tier
// is resolved by title, which the API keeps unique within a petition.
func (c *Client) CreateSupportTier(ctx context.Context, sess petition.Session, petitionID int, t petition.SupportTier) (petition.SupportTier, error) {
	t.ID = 0
	var created petition.SupportTier
	if err := c.doJSON(ctx, http.MethodPut, petitionPath(petitionID)+"/supportTiers", sess, nil, t, &created); err != nil {
		return petition.SupportTier{}, err
	}
	if created.ID != 0 {
		return created, nil
	}

	p, err := c.GetPetition(ctx, petitionID)
	if err != nil {
		return petition.SupportTier{}, fmt.Errorf("resolve created tier %q: %w", t.Title, err)
	}
	for _, existing := range p.SupportTiers {
		if existing.Title == t.Title {
			return existing, nil
		}
	}
	return petition.SupportTier{}, fmt.Errorf("resolve created tier %q: not found on petition %d", t.Title, petitionID)
}

// UpdateSupportTier patches one tier.
func (c *Client) UpdateSupportTier(ctx context.Context, sess petition.Session, petitionID, tierID int, p TierPatch) error {
	return c.doJSON(ctx, http.MethodPatch, tierPath(petitionID, tierID), sess, nil, p, nil)
}

// DeleteSupportTier removes one tier. The API refuses to remove a petition's
// last tier; see IsLastTierRejection.
func (c *Client) DeleteSupportTier(ctx context.Context, sess petition.Session, petitionID, tierID int) error {
	return c.doJSON(ctx, http.MethodDelete, tierPath(petitionID, tierID), sess, nil, nil, nil)
}

func petitionPath(id int) string {
	return fmt.Sprintf("/petitions/%d", id)
}

func tierPath(petitionID, tierID int) string {
	return fmt.Sprintf("%s/supportTiers/%d", petitionPath(petitionID), tierID)
}
