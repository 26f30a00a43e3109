// Package model defines the domain types shared across the search pipeline.
package model

import "time"

// Source tags identify the marketplace an ad came from.
const (
	SourceOLX     = "olx"
	SourceAutovit = "autovit"
)

// RawListing is a candidate ad as returned by a source adapter.
// It is immutable once returned; the match filter converts survivors
// into CanonicalListings.
type RawListing struct {
	Title  string `json:"title"`
	Price  string `json:"price"` // currency-tagged text, e.g. "18 500 €" or "92.000 lei"
	Link   string `json:"link"`
	Image  string `json:"image,omitempty"`
	Year   int    `json:"year,omitempty"`
	KM     int    `json:"km,omitempty"`
	CC     int    `json:"cc,omitempty"`
	HP     int    `json:"hp,omitempty"`
	Source string `json:"source"`
}

// RepairStatus tracks what the repair engine did to a listing.
type RepairStatus string

const (
	RepairNone     RepairStatus = "none"
	RepairRepaired RepairStatus = "repaired"
	RepairFailed   RepairStatus = "failed"
	RepairGhost    RepairStatus = "ghost"
)

// CanonicalListing is a matched ad with a resolved numeric price and
// identity. The repair engine mutates it in place; after deduplication
// it is read-only.
type CanonicalListing struct {
	Title  string       `json:"title"`
	Price  int          `json:"price"` // EUR
	Link   string       `json:"link"`
	Image  string       `json:"image,omitempty"`
	Year   int          `json:"year,omitempty"`
	KM     int          `json:"km,omitempty"`
	CC     int          `json:"cc,omitempty"`
	HP     int          `json:"hp,omitempty"`
	Source string       `json:"source"`
	AdID   string       `json:"ad_id"` // source-embedded id, or the full link
	Repair RepairStatus `json:"repair_status"`
}

// Detail is the structured result of a detail-page fetch.
type Detail struct {
	HTML       string
	FinalURL   string
	StatusCode int
	FetchedAt  time.Time
}

// StoredAd is a persisted listing row in the ad store.
type StoredAd struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	Currency  string    `json:"currency"`
	Link      string    `json:"link"`
	Image     string    `json:"image,omitempty"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year,omitempty"`
	KM        int       `json:"km,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	Active    bool      `json:"active"`
}
