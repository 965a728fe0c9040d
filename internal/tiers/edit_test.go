package tiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/petitions/internal/petition"
)

func TestEditDoesNotAliasBaseline(t *testing.T) {
	baseline := []petition.SupportTier{tier(1, "A", 1)}
	e := NewEdit(baseline)

	require.NoError(t, e.Set(0, petition.SupportTier{Title: "Changed", Description: "d", Cost: 2}))

	assert.Equal(t, "A", baseline[0].Title)
	assert.Equal(t, 1, e.Tiers()[0].ID, "Set keeps the persisted id")
	assert.Equal(t, "Changed", e.Tiers()[0].Title)
}

func TestEditAddCapsAtMax(t *testing.T) {
	e := NewEdit([]petition.SupportTier{tier(1, "A", 1)})

	require.NoError(t, e.Add(tier(5, "B", 2)))
	require.NoError(t, e.Add(tier(0, "C", 3)))
	require.ErrorIs(t, e.Add(tier(0, "D", 4)), ErrTooManyTiers)

	assert.Equal(t, 3, e.Len())
	assert.Equal(t, 0, e.Tiers()[1].ID, "added tiers are always new")
}

func TestEditRemoveKeepsOneTier(t *testing.T) {
	e := NewEdit([]petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2)})

	require.NoError(t, e.Remove(e.IndexOf(1)))
	require.ErrorIs(t, e.Remove(0), ErrLastTier)
	require.ErrorIs(t, e.Remove(4), ErrTierIndex)

	assert.Equal(t, 2, e.Tiers()[0].ID)
	assert.Equal(t, -1, e.IndexOf(1))
}

func TestEditThenDiff(t *testing.T) {
	baseline := []petition.SupportTier{tier(1, "Bronze", 5)}
	e := NewEdit(baseline)
	require.NoError(t, e.Add(tier(0, "Silver", 10)))
	require.NoError(t, e.Remove(0))

	plan := Diff(baseline, e.Tiers())
	assert.Len(t, plan.Create, 1)
	assert.Len(t, plan.Delete, 1)
	assert.Empty(t, plan.Update)
}

func TestEditApply(t *testing.T) {
	tests := []struct {
		name    string
		base    []petition.SupportTier
		changes Changes
		want    []string
		wantErr error
	}{
		{
			name:    "set keeps id",
			base:    []petition.SupportTier{tier(1, "A", 1)},
			changes: Changes{Set: []petition.SupportTier{tier(1, "A2", 3)}},
			want:    []string{"A2"},
		},
		{
			name:    "replace the only tier",
			base:    []petition.SupportTier{tier(1, "A", 1)},
			changes: Changes{Remove: []int{1}, Add: []petition.SupportTier{tier(0, "B", 2)}},
			want:    []string{"B"},
		},
		{
			name: "swap one of three",
			base: []petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3)},
			changes: Changes{
				Remove: []int{2},
				Add:    []petition.SupportTier{tier(0, "D", 4)},
			},
			want: []string{"A", "C", "D"},
		},
		{
			name:    "remove the only tier",
			base:    []petition.SupportTier{tier(1, "A", 1)},
			changes: Changes{Remove: []int{1}},
			wantErr: ErrLastTier,
		},
		{
			name:    "add a fourth tier",
			base:    []petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2), tier(3, "C", 3)},
			changes: Changes{Add: []petition.SupportTier{tier(0, "D", 4)}},
			wantErr: ErrTooManyTiers,
		},
		{
			name:    "set unknown id",
			base:    []petition.SupportTier{tier(1, "A", 1)},
			changes: Changes{Set: []petition.SupportTier{tier(0, "A2", 3)}},
			wantErr: ErrUnknownTier,
		},
		{
			name:    "remove unknown id",
			base:    []petition.SupportTier{tier(1, "A", 1), tier(2, "B", 2)},
			changes: Changes{Remove: []int{9}},
			wantErr: ErrUnknownTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEdit(tt.base)
			err := e.Apply(tt.changes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			var titles []string
			for _, got := range e.Tiers() {
				titles = append(titles, got.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestChangesEmpty(t *testing.T) {
	assert.True(t, Changes{}.Empty())
	assert.False(t, Changes{Remove: []int{1}}.Empty())
}
