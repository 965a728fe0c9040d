package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValuesDefaults(t *testing.T) {
	v := Query{}.Values()

	assert.Equal(t, "CREATED_ASC", v.Get("sortBy"))
	assert.Equal(t, "0", v.Get("startIndex"))
	assert.Equal(t, "10", v.Get("count"))
	assert.False(t, v.Has("q"))
	assert.False(t, v.Has("categoryIds"))
	assert.False(t, v.Has("supportingCost"))
	assert.False(t, v.Has("ownerId"))
	assert.False(t, v.Has("supporterId"))
}

func TestQueryValuesFilters(t *testing.T) {
	q := Query{
		Search:      "  park  ",
		CategoryIDs: []int{2, 5},
		MaxCost:     20,
		OwnerID:     3,
		SupporterID: 4,
		SortBy:      SortCostDesc,
		Page:        3,
		PageSize:    5,
	}
	v := q.Values()

	assert.Equal(t, "park", v.Get("q"))
	assert.Equal(t, []string{"2", "5"}, v["categoryIds"])
	assert.Equal(t, "20", v.Get("supportingCost"))
	assert.Equal(t, "3", v.Get("ownerId"))
	assert.Equal(t, "4", v.Get("supporterId"))
	assert.Equal(t, "COST_DESC", v.Get("sortBy"))
	assert.Equal(t, "10", v.Get("startIndex"))
	assert.Equal(t, "5", v.Get("count"))
}

func TestQueryCountOverridesPaging(t *testing.T) {
	v := Query{Count: 5, Page: 4}.Values()

	assert.Equal(t, "5", v.Get("count"))
	assert.False(t, v.Has("startIndex"))
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{11, 5, 3},
		{7, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LastPage(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestParseSort(t *testing.T) {
	got, err := ParseSort("cost_asc")
	require.NoError(t, err)
	assert.Equal(t, SortCostAsc, got)

	got, err = ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortCreatedAsc, got)

	_, err = ParseSort("random")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sort")
}
