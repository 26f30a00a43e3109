package model

import (
	"fmt"
	"strings"
)

// SortKey selects the final ranking of a result set.
type SortKey string

const (
	SortPrice SortKey = "price"
	SortYear  SortKey = "year"
	SortKM    SortKey = "km"
)

// SortOrder is the ranking direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SiteAll selects every configured source.
const SiteAll = "all"

// SearchQuery is a single logical search request. It is constructed once
// per request and never mutated.
type SearchQuery struct {
	Make       string    `json:"make"`
	Model      string    `json:"model"`
	Generation string    `json:"generation,omitempty"`
	MinPrice   int       `json:"min_price,omitempty"`
	MaxPrice   int       `json:"max_price,omitempty"`
	MinYear    int       `json:"min_year,omitempty"`
	MaxYear    int       `json:"max_year,omitempty"`
	MaxKM      int       `json:"max_km,omitempty"`
	MinCC      int       `json:"min_cc,omitempty"`
	MinHP      int       `json:"min_hp,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	MaxPages   int       `json:"max_pages,omitempty"`
	Site       string    `json:"site,omitempty"` // source name or SiteAll
	Sort       SortKey   `json:"sort,omitempty"`
	Order      SortOrder `json:"order,omitempty"`
}

// Fingerprint serializes the complete parameter tuple into a stable
// cache key.
func (q SearchQuery) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d|%d|%d|%d|%d|%d|%s|%s|%s",
		strings.ToLower(q.Make), strings.ToLower(q.Model), strings.ToLower(q.Generation),
		q.MinPrice, q.MaxPrice, q.MinYear, q.MaxYear, q.MaxKM, q.MinCC, q.MinHP,
		q.Limit, q.MaxPages, strings.ToLower(q.Site), q.Sort, q.Order,
	)
}
