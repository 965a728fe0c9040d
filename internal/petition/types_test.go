package petition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportTierSameContent(t *testing.T) {
	a := SupportTier{ID: 1, Title: "Bronze", Description: "d", Cost: 5}

	assert.True(t, a.SameContent(SupportTier{ID: 9, Title: "Bronze", Description: "d", Cost: 5}))
	assert.False(t, a.SameContent(SupportTier{ID: 1, Title: "Bronze", Description: "d", Cost: 6}))
	assert.False(t, a.SameContent(SupportTier{ID: 1, Title: "Silver", Description: "d", Cost: 5}))
	assert.False(t, a.SameContent(SupportTier{ID: 1, Title: "Bronze", Description: "e", Cost: 5}))
}

func TestPetitionDecodesWireNames(t *testing.T) {
	raw := `{
		"petitionId": 7,
		"title": "Save the park",
		"categoryId": 2,
		"ownerId": 3,
		"ownerFirstName": "Ada",
		"ownerLastName": "Lovelace",
		"numberOfSupporters": 4,
		"creationDate": "2024-05-01T10:00:00Z",
		"description": "green",
		"moneyRaised": 40,
		"supportTiers": [{"supportTierId": 11, "title": "Bronze", "description": "b", "cost": 5}]
	}`

	var p Petition
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "Ada Lovelace", p.OwnerName())
	assert.Equal(t, 40, p.MoneyRaised)
	tier, ok := p.Tier(11)
	require.True(t, ok)
	assert.Equal(t, "Bronze", tier.Title)
	_, ok = p.Tier(12)
	assert.False(t, ok)
}

func TestSessionOwns(t *testing.T) {
	p := PetitionSummary{ID: 1, OwnerID: 5}

	assert.True(t, Session{UserID: 5, Token: "t"}.Owns(p))
	assert.False(t, Session{UserID: 6, Token: "t"}.Owns(p))
	assert.False(t, Session{UserID: 5}.Owns(p), "no token means logged out")
	assert.False(t, Session{}.LoggedIn())
}

func TestCategoryNames(t *testing.T) {
	names := CategoryNames([]Category{{ID: 1, Name: "Wildlife"}, {ID: 2, Name: "Health"}})
	assert.Equal(t, map[int]string{1: "Wildlife", 2: "Health"}, names)
}
