// Package store persists ads, the model catalog, search stats and alerts.
package store

import (
	"context"
	"time"

	"github.com/RobertM05/car-sniper/internal/model"
)

// AdFilter specifies criteria for querying stored ads.
type AdFilter struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	MinPrice int    `json:"min_price,omitempty"`
	MaxPrice int    `json:"max_price,omitempty"`
	MinYear  int    `json:"min_year,omitempty"`
	MaxYear  int    `json:"max_year,omitempty"`
	MaxKM    int    `json:"max_km,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the search pipeline.
type Store interface {
	// Ads
	UpsertAd(ctx context.Context, ad model.StoredAd) (string, error)
	DeleteAd(ctx context.Context, id string) error
	DeleteAdByLink(ctx context.Context, link string) error
	SearchAds(ctx context.Context, filter AdFilter) ([]model.StoredAd, error)
	DeactivateStaleAds(ctx context.Context, olderThan time.Duration) (int, error)

	// Catalog
	UpsertCatalogEntry(ctx context.Context, entry model.CatalogEntry) error
	GetCatalogEntry(ctx context.Context, makeName, modelName string) (*model.CatalogEntry, error)
	ListGenerations(ctx context.Context, makeName, modelName string) ([]model.Generation, error)
	ListBrands(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, makeName string) ([]string, error)

	// Search stats
	RecordSearch(ctx context.Context, makeName, modelName string, avgPrice, avgYear, avgKM float64) error
	GetStats(ctx context.Context, makeName, modelName string) (*model.StatsRecord, error)
	PopularModels(ctx context.Context, makeName string, limit int) ([]model.StatsRecord, error)

	// Alerts
	CreateAlert(ctx context.Context, email, makeName, modelName string, maxPrice int) (*model.Alert, error)
	ListAlerts(ctx context.Context) ([]model.Alert, error)
	TouchAlert(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
