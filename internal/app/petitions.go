package app

import (
	"context"
	"fmt"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/validate"
)

// MaxSimilar caps the similar petitions shown with a petition.
const MaxSimilar = 5

// UnknownTier labels a supporter whose tier no longer exists.
const UnknownTier = "Unknown Tier"

// Listing is a petition row with its category name resolved.
type Listing struct {
	petition.PetitionSummary
	CategoryName string
}

// Page is one page of a petition listing.
type Page struct {
	Petitions []Listing
	Total     int
	Page      int
	LastPage  int
}

// BrowsePetitions lists one page of petitions matching q.
func (a *App) BrowsePetitions(ctx context.Context, q api.Query) (Page, error) {
	cats, err := a.client.Categories(ctx)
	if err != nil {
		return Page{}, err
	}
	res, err := a.client.ListPetitions(ctx, q)
	if err != nil {
		return Page{}, err
	}

	names := petition.CategoryNames(cats)
	page := Page{
		Petitions: make([]Listing, 0, len(res.Petitions)),
		Total:     res.Count,
		Page:      max(q.Page, 1),
		LastPage:  api.LastPage(res.Count, q.Size()),
	}
	for _, p := range res.Petitions {
		page.Petitions = append(page.Petitions, Listing{PetitionSummary: p, CategoryName: names[p.CategoryID]})
	}
	return page, nil
}

// SupporterView is a supporter with the title of the tier they chose.
type SupporterView struct {
	petition.Supporter
	TierTitle string
}

// Details is everything shown on a petition's page.
type Details struct {
	Petition     petition.Petition
	CategoryName string
	Supporters   []SupporterView
	Similar      []petition.PetitionSummary
}

// PetitionDetails fetches a petition, its supporters and similar petitions:
// those sharing its category or its owner, excluding itself.
func (a *App) PetitionDetails(ctx context.Context, id int) (Details, error) {
	p, err := a.client.GetPetition(ctx, id)
	if err != nil {
		return Details{}, err
	}
	cats, err := a.client.Categories(ctx)
	if err != nil {
		return Details{}, err
	}
	sups, err := a.client.Supporters(ctx, id)
	if err != nil {
		return Details{}, err
	}

	d := Details{
		Petition:     p,
		CategoryName: petition.CategoryNames(cats)[p.CategoryID],
		Supporters:   make([]SupporterView, 0, len(sups)),
	}
	for _, s := range sups {
		title := UnknownTier
		if t, ok := p.Tier(s.SupportTierID); ok {
			title = t.Title
		}
		d.Supporters = append(d.Supporters, SupporterView{Supporter: s, TierTitle: title})
	}

	seen := map[int]bool{p.ID: true}
	for _, q := range []api.Query{
		{CategoryIDs: []int{p.CategoryID}, Count: MaxSimilar + 1},
		{OwnerID: p.OwnerID, Count: MaxSimilar + 1},
	} {
		res, err := a.client.ListPetitions(ctx, q)
		if err != nil {
			return Details{}, fmt.Errorf("similar petitions: %w", err)
		}
		for _, s := range res.Petitions {
			if len(d.Similar) == MaxSimilar {
				break
			}
			if !seen[s.ID] {
				seen[s.ID] = true
				d.Similar = append(d.Similar, s)
			}
		}
	}
	return d, nil
}

// CreatePetition validates and creates a petition with its image and
// returns its ID.
//
// When the image upload fails the petition still exists; its ID is
// returned alongside the error.
func (a *App) CreatePetition(ctx context.Context, sess petition.Session, draft validate.PetitionDraft, image []byte) (int, error) {
	if err := requireLogin(sess); err != nil {
		return 0, err
	}
	if err := validate.Petition(draft); err != nil {
		return 0, err
	}
	contentType, err := validate.Image(image)
	if err != nil {
		return 0, err
	}

	tiers := make([]petition.SupportTier, len(draft.Tiers))
	for i, t := range draft.Tiers {
		t.ID = 0
		tiers[i] = t
	}
	id, err := a.client.CreatePetition(ctx, sess, api.NewPetition{
		Title:        draft.Title,
		Description:  draft.Description,
		CategoryID:   draft.CategoryID,
		SupportTiers: tiers,
	})
	if err != nil {
		return 0, err
	}
	if err := a.client.PutPetitionImage(ctx, sess, id, api.Image{Data: image, ContentType: contentType}); err != nil {
		return id, fmt.Errorf("petition %d created, image upload failed: %w", id, err)
	}
	return id, nil
}

// ownedPetition fetches a petition and checks sess may change it.
func (a *App) ownedPetition(ctx context.Context, sess petition.Session, id int) (petition.Petition, error) {
	if err := requireLogin(sess); err != nil {
		return petition.Petition{}, err
	}
	p, err := a.client.GetPetition(ctx, id)
	if err != nil {
		return petition.Petition{}, err
	}
	if !sess.Owns(p.PetitionSummary) {
		return petition.Petition{}, ErrNotOwner
	}
	return p, nil
}

// DeletePetition deletes a petition the session user owns.
func (a *App) DeletePetition(ctx context.Context, sess petition.Session, id int) error {
	if _, err := a.ownedPetition(ctx, sess, id); err != nil {
		return err
	}
	return a.client.DeletePetition(ctx, sess, id)
}

// SupportPetition pledges the session user to a petition at tierID.
func (a *App) SupportPetition(ctx context.Context, sess petition.Session, id, tierID int, message string) error {
	if err := requireLogin(sess); err != nil {
		return err
	}
	p, err := a.client.GetPetition(ctx, id)
	if err != nil {
		return err
	}
	if sess.Owns(p.PetitionSummary) {
		return ErrOwnPetition
	}
	if _, ok := p.Tier(tierID); !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchTier, tierID)
	}
	return a.client.Support(ctx, sess, id, api.NewSupport{SupportTierID: tierID, Message: message})
}

// Mine is the session user's petitions.
type Mine struct {
	Owned     []petition.PetitionSummary
	Supported []petition.PetitionSummary
}

// All returns owned petitions followed by supported ones, each petition once.
func (m Mine) All() []petition.PetitionSummary {
	seen := map[int]bool{}
	var out []petition.PetitionSummary
	for _, group := range [][]petition.PetitionSummary{m.Owned, m.Supported} {
		for _, p := range group {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// MyPetitions lists the petitions the session user owns or supports.
func (a *App) MyPetitions(ctx context.Context, sess petition.Session) (Mine, error) {
	if err := requireLogin(sess); err != nil {
		return Mine{}, err
	}
	owned, err := a.listAll(ctx, api.Query{OwnerID: sess.UserID})
	if err != nil {
		return Mine{}, err
	}
	supported, err := a.listAll(ctx, api.Query{SupporterID: sess.UserID})
	if err != nil {
		return Mine{}, err
	}
	return Mine{Owned: owned, Supported: supported}, nil
}

// listAll pages through every petition matching q.
func (a *App) listAll(ctx context.Context, q api.Query) ([]petition.PetitionSummary, error) {
	q.Count = 0
	q.PageSize = api.DefaultPageSize
	var out []petition.PetitionSummary
	for q.Page = 1; ; q.Page++ {
		res, err := a.client.ListPetitions(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Petitions...)
		if len(res.Petitions) == 0 || len(out) >= res.Count {
			return out, nil
		}
	}
}
