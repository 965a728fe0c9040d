package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortBy orders a petition listing.
type SortBy string

// Sort orders accepted by GET /petitions.
const (
	SortAlphabeticalAsc  SortBy = "ALPHABETICAL_ASC"
	SortAlphabeticalDesc SortBy = "ALPHABETICAL_DESC"
	SortCostAsc          SortBy = "COST_ASC"
	SortCostDesc         SortBy = "COST_DESC"
	SortCreatedAsc       SortBy = "CREATED_ASC"
	SortCreatedDesc      SortBy = "CREATED_DESC"
)

// ValidSorts lists the accepted sort orders.
var ValidSorts = []SortBy{
	SortAlphabeticalAsc, SortAlphabeticalDesc,
	SortCostAsc, SortCostDesc,
	SortCreatedAsc, SortCreatedDesc,
}

// Page sizes offered by the browse view.
const (
	DefaultPageSize = 10
	SmallPageSize   = 5
)

// ParseSort accepts a sort order case-insensitively.
func ParseSort(s string) (SortBy, error) {
	if s == "" {
		return SortCreatedAsc, nil
	}
	want := SortBy(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range ValidSorts {
		if v == want {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid sort %q: must be one of %v", s, ValidSorts)
}

// Query selects a page of petitions.
//
// Zero-valued filters are not sent. Page is 1-based; PageSize 0 means
// DefaultPageSize. Count, when non-zero, asks for exactly that many rows
// starting at the first one and overrides paging.
type Query struct {
	Search      string
	CategoryIDs []int
	MaxCost     int
	OwnerID     int
	SupporterID int
	SortBy      SortBy
	Page        int
	PageSize    int
	Count       int
}

// Size returns the effective page size.
func (q Query) Size() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}

// StartIndex returns the zero-based index of the first row on the page.
func (q Query) StartIndex() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Size()
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	sort := q.SortBy
	if sort == "" {
		sort = SortCreatedAsc
	}
	v.Set("sortBy", string(sort))

	if q.Count > 0 {
		v.Set("count", strconv.Itoa(q.Count))
	} else {
		v.Set("startIndex", strconv.Itoa(q.StartIndex()))
		v.Set("count", strconv.Itoa(q.Size()))
	}

	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("q", s)
	}
	for _, id := range q.CategoryIDs {
		v.Add("categoryIds", strconv.Itoa(id))
	}
	if q.MaxCost > 0 {
		v.Set("supportingCost", strconv.Itoa(q.MaxCost))
	}
	if q.OwnerID > 0 {
		v.Set("ownerId", strconv.Itoa(q.OwnerID))
	}
	if q.SupporterID > 0 {
		v.Set("supporterId", strconv.Itoa(q.SupporterID))
	}
	return v
}

// LastPage returns the number of pages needed for total rows, at least 1.
func LastPage(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
