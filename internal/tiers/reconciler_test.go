package tiers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

var testSession = petition.Session{UserID: 1, Token: "token"}

func TestApplyReplacesOnlyTierByCreatingFirst(t *testing.T) {
	fake := newFake(tier(1, "Bronze", 5))
	r := NewReconciler(fake, testSession)

	rep, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{tier(0, "Silver", 10)})
	require.NoError(t, err)

	assert.Equal(t, []string{"delete 1", "create Silver", "delete 1"}, fake.calls)
	assert.Equal(t, 1, fake.minCount)
	assert.Equal(t, contents([]petition.SupportTier{tier(0, "Silver", 10)}), contents(fake.tiers))

	require.Len(t, rep.Steps, 3)
	assert.Equal(t, OutcomeRejected, rep.Steps[0].Outcome)
	assert.Equal(t, OpCreate, rep.Steps[1].Kind)
	assert.Equal(t, 100, rep.Steps[1].Tier.ID, "created step carries the server-assigned id")
	assert.Equal(t, OpDelete, rep.Steps[2].Kind)
	assert.Len(t, rep.Applied(), 2)
}

func TestApplyUpdateOnly(t *testing.T) {
	fake := newFake(tier(1, "A", 1), tier(2, "B", 2))
	r := NewReconciler(fake, testSession)

	b2 := tier(2, "B", 2)
	b2.Title = "B2"
	_, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{tier(1, "A", 1), b2})
	require.NoError(t, err)

	assert.Equal(t, []string{"update 2"}, fake.calls)
	assert.Equal(t, "B2", fake.tiers[1].Title)
}

func TestApplyAddDoesNotDelete(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	r := NewReconciler(fake, testSession)

	_, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{tier(1, "A", 1), tier(0, "New", 3)})
	require.NoError(t, err)

	assert.Equal(t, []string{"create New"}, fake.calls)
	assert.Equal(t, 1, fake.minCount)
	assert.Len(t, fake.tiers, 2)
}

func TestReconcileRejectsEmptyEditedSet(t *testing.T) {
	fake := newFake(tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3))
	r := NewReconciler(fake, testSession)

	_, err := r.Reconcile(context.Background(), 7, fake.tiers, nil)
	require.ErrorIs(t, err, ErrNoTiers)
	assert.Empty(t, fake.calls, "no API call is made for an empty edited set")
}

func TestApplyFullReplacementStaysWithinBounds(t *testing.T) {
	fake := newFake(tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3))
	r := NewReconciler(fake, testSession)

	edited := []petition.SupportTier{tier(0, "D", 4), tier(0, "E", 5), tier(0, "F", 6)}
	_, err := r.Reconcile(context.Background(), 7, fake.tiers, edited)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete 1", "delete 2", "delete 3", "create D", "delete 3", "create E", "create F",
	}, fake.calls)
	assert.Equal(t, 1, fake.minCount)
	assert.Equal(t, 3, fake.maxCount)
	assert.Equal(t, contents(edited), contents(fake.tiers))
}

func TestApplyResultMatchesEditedSet(t *testing.T) {
	cases := []struct {
		name     string
		baseline []petition.SupportTier
		edited   []petition.SupportTier
	}{
		{
			"mixed",
			[]petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3)},
			[]petition.SupportTier{tier(0, "Z", 9), {ID: 2, Title: "B", Description: "changed", Cost: 2}},
		},
		{
			"swap one",
			[]petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2)},
			[]petition.SupportTier{tier(1, "A", 1), tier(0, "C", 3)},
		},
		{
			"grow to three",
			[]petition.SupportTier{tier(1, "A", 1)},
			[]petition.SupportTier{tier(1, "A", 10), tier(0, "B", 2), tier(0, "C", 3)},
		},
		{
			"shrink to one",
			[]petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3)},
			[]petition.SupportTier{tier(3, "C", 3)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFake(tc.baseline...)
			r := NewReconciler(fake, testSession)

			_, err := r.Reconcile(context.Background(), 7, tc.baseline, tc.edited)
			require.NoError(t, err)

			assert.ElementsMatch(t, contents(tc.edited), contents(fake.tiers))
			assert.GreaterOrEqual(t, fake.minCount, 1)
			assert.LessOrEqual(t, fake.maxCount, petition.MaxSupportTiers)
		})
	}
}

func TestApplyAbortsOnTransportError(t *testing.T) {
	fake := newFake(tier(1, "A", 1), tier(2, "B", 2))
	fake.failOn["delete 2"] = &api.TransportError{Method: http.MethodDelete, Path: "/petitions/7/supportTiers/2", Err: errBoom}
	r := NewReconciler(fake, testSession)

	a := tier(1, "A", 1)
	a.Cost = 50
	rep, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{a, tier(0, "C", 3)})
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, OpDelete, stepErr.Kind)
	assert.Equal(t, 2, stepErr.Tier.ID)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, []string{"update 1", "delete 2"}, fake.calls, "create is never attempted")
	require.Len(t, rep.Applied(), 1)
	assert.Equal(t, OpUpdate, rep.Applied()[0].Kind)
	failed, ok := rep.Failed()
	require.True(t, ok)
	assert.Equal(t, OpDelete, failed.Kind)
}

func TestApplyDoesNotRecoverOtherRejections(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	fake.failOn["delete 1"] = &api.Error{Status: http.StatusForbidden, Message: "Cannot remove a support tier if a supporter already exists for it"}
	r := NewReconciler(fake, testSession)

	_, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{tier(0, "B", 2)})
	require.Error(t, err)

	assert.Equal(t, []string{"delete 1"}, fake.calls)
	assert.Equal(t, http.StatusForbidden, api.StatusOf(err))
}

func TestApplyLastTierWithoutPendingCreateFails(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	r := NewReconciler(fake, testSession)

	rep, err := r.Apply(context.Background(), 7, Plan{Delete: []petition.SupportTier{tier(1, "A", 1)}})
	require.Error(t, err)
	assert.True(t, api.IsLastTierRejection(err))
	assert.Empty(t, rep.Applied())
	assert.Len(t, fake.tiers, 1)
}

func TestApplyUpdateFailureStopsBeforeDeletes(t *testing.T) {
	fake := newFake(tier(1, "A", 1), tier(2, "B", 2))
	fake.failOn["update 1"] = &api.Error{Status: http.StatusUnauthorized}
	r := NewReconciler(fake, testSession)

	a := tier(1, "A", 1)
	a.Title = "A2"
	_, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{a})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, []string{"update 1"}, fake.calls)
}

func TestApplyHonoursCancelledContext(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	r := NewReconciler(fake, testSession)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Apply(ctx, 7, Plan{Create: []petition.SupportTier{tier(0, "B", 2)}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.calls)
}

func TestApplyEmptyPlanMakesNoCalls(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	rep, err := NewReconciler(fake, testSession).Apply(context.Background(), 7, Plan{})
	require.NoError(t, err)
	assert.Empty(t, rep.Steps)
	assert.Empty(t, fake.calls)
}

func TestCustomLastTierClassifier(t *testing.T) {
	fake := newFake(tier(1, "A", 1))
	fake.failOn["delete 1"] = errBoom
	calls := 0
	r := NewReconciler(fake, testSession, WithLastTierClassifier(func(err error) bool {
		calls++
		return err == errBoom && calls == 1
	}))

	_, err := r.Reconcile(context.Background(), 7, fake.tiers, []petition.SupportTier{tier(0, "B", 2)})
	require.Error(t, err, "the retried delete still fails")
	assert.Equal(t, []string{"delete 1", "create B", "delete 1"}, fake.calls)
}
