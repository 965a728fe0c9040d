package apitest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

type fixture struct {
	srv    *Server
	client *api.Client
	owner  petition.Session
	other  petition.Session
	pet    petition.Petition
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	srv := New(opts...)
	ownerID := srv.AddUser("Olive", "Owner", "olive@example.com", "password")
	otherID := srv.AddUser("Sam", "Supporter", "sam@example.com", "password")
	pet := srv.AddPetition(ownerID, "Plant trees", "More trees downtown", 2, []petition.SupportTier{
		{Title: "Seed", Description: "One seed", Cost: 0},
	})
	return fixture{
		srv:    srv,
		client: api.New(srv.Start(t)),
		owner:  srv.Login(ownerID),
		other:  srv.Login(otherID),
		pet:    pet,
	}
}

func TestDeleteLastTierIsRejectedAsLastTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.client.DeleteSupportTier(ctx, f.owner, f.pet.ID, f.pet.SupportTiers[0].ID)
	require.Error(t, err)
	assert.True(t, api.IsLastTierRejection(err), "got %v", err)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
}

func TestDeleteSupportedTierIsNotALastTierRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.client.CreateSupportTier(ctx, f.owner, f.pet.ID, petition.SupportTier{Title: "Sapling", Description: "A sapling", Cost: 10})
	require.NoError(t, err)
	f.srv.AddSupporter(f.pet.ID, f.other.UserID, created.ID, "")

	err = f.client.DeleteSupportTier(ctx, f.owner, f.pet.ID, created.ID)
	require.Error(t, err)
	assert.False(t, api.IsLastTierRejection(err))
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
}

func TestCreateTierWithoutBodyResolvesByTitle(t *testing.T) {
	for _, withBody := range []bool{false, true} {
		var opts []Option
		if withBody {
			opts = append(opts, WithCreatedTierBody())
		}
		f := newFixture(t, opts...)

		created, err := f.client.CreateSupportTier(context.Background(), f.owner, f.pet.ID, petition.SupportTier{Title: "Grove", Description: "A grove", Cost: 50})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Grove", created.Title)
		assert.Equal(t, f.srv.Tiers(f.pet.ID)[1], created)
	}
}

func TestTierLimitsAndBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Two", "Three"} {
		_, err := f.client.CreateSupportTier(ctx, f.owner, f.pet.ID, petition.SupportTier{Title: title, Description: "d"})
		require.NoError(t, err)
	}
	_, err := f.client.CreateSupportTier(ctx, f.owner, f.pet.ID, petition.SupportTier{Title: "Four", Description: "d"})
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))

	_, err = f.client.CreateSupportTier(ctx, f.owner, f.pet.ID, petition.SupportTier{Title: "Seed", Description: "d"})
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))

	require.NoError(t, f.client.DeleteSupportTier(ctx, f.owner, f.pet.ID, f.pet.SupportTiers[0].ID))
	lo, hi := f.srv.TierBounds(f.pet.ID)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)
}

func TestOwnershipAndAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	title := "Hijacked"

	err := f.client.UpdatePetition(ctx, f.other, f.pet.ID, api.PetitionPatch{Title: &title})
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))

	err = f.client.UpdatePetition(ctx, petition.Session{}, f.pet.ID, api.PetitionPatch{Title: &title})
	assert.True(t, api.IsUnauthorized(err))

	err = f.client.Support(ctx, f.owner, f.pet.ID, api.NewSupport{SupportTierID: f.pet.SupportTiers[0].ID})
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))

	require.NoError(t, f.client.Support(ctx, f.other, f.pet.ID, api.NewSupport{SupportTierID: f.pet.SupportTiers[0].ID, Message: "go"}))
	sups, err := f.client.Supporters(ctx, f.pet.ID)
	require.NoError(t, err)
	require.Len(t, sups, 1)
	assert.Equal(t, "Sam Supporter", sups[0].Name())
}

func TestListFiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerID := f.owner.UserID
	f.srv.AddPetition(ownerID, "Clean rivers", "Rivers", 2, []petition.SupportTier{{Title: "Drop", Description: "d", Cost: 30}})
	f.srv.AddPetition(ownerID, "Adopt cats", "Cats", 3, []petition.SupportTier{{Title: "Paw", Description: "d", Cost: 5}})

	page, err := f.client.ListPetitions(ctx, api.Query{SortBy: api.SortAlphabeticalAsc})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Petitions, 3)
	assert.Equal(t, "Adopt cats", page.Petitions[0].Title)

	page, err = f.client.ListPetitions(ctx, api.Query{CategoryIDs: []int{2}, MaxCost: 10})
	require.NoError(t, err)
	require.Len(t, page.Petitions, 1)
	assert.Equal(t, "Plant trees", page.Petitions[0].Title)

	page, err = f.client.ListPetitions(ctx, api.Query{Search: "RIVER"})
	require.NoError(t, err)
	require.Len(t, page.Petitions, 1)

	page, err = f.client.ListPetitions(ctx, api.Query{Page: 2, PageSize: api.SmallPageSize, SortBy: api.SortCostDesc})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	assert.Empty(t, page.Petitions)
}

func TestImagesAndDelay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	img := api.Image{Data: []byte("\x89PNG\r\n\x1a\nfake"), ContentType: "image/png"}

	require.NoError(t, f.client.PutUserImage(ctx, f.owner, f.owner.UserID, img))
	f.srv.DelayImage("/users/1/image", 1)

	_, err := f.client.GetUserImage(ctx, f.owner.UserID)
	assert.True(t, api.IsNotFound(err))

	got, err := f.client.GetUserImage(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, img, got)

	err = f.client.PutUserImage(ctx, f.owner, f.owner.UserID, api.Image{Data: []byte("x"), ContentType: "text/plain"})
	assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))
}

func TestFailNextAndCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.ResetCalls()
	f.srv.FailNext(http.MethodGet, "/petitions/1", http.StatusInternalServerError, "boom")

	_, err := f.client.GetPetition(ctx, f.pet.ID)
	assert.Equal(t, http.StatusInternalServerError, api.StatusOf(err))
	_, err = f.client.GetPetition(ctx, f.pet.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /petitions/1", "GET /petitions/1"}, f.srv.Calls())
}
