package model

import "time"

// CatalogEntry maps a (make, model[, generation]) to a known production
// year range. Populated by the seed command or an external catalog
// scraper; the pipeline only reads it.
// Invariant: MinYear <= MaxYear when both are set.
type CatalogEntry struct {
	Make        string   `json:"make" yaml:"make"`
	Model       string   `json:"model" yaml:"model"`
	Generation  string   `json:"generation,omitempty" yaml:"generation,omitempty"`
	MinYear     int      `json:"min_year,omitempty" yaml:"min_year,omitempty"`
	MaxYear     int      `json:"max_year,omitempty" yaml:"max_year,omitempty"`
	BodyType    string   `json:"body_type,omitempty" yaml:"body_type,omitempty"`
	Variants    []string `json:"model_variants,omitempty" yaml:"model_variants,omitempty"`
	EngineTypes []string `json:"engine_types,omitempty" yaml:"engine_types,omitempty"`
}

// Generation describes one production generation of a model.
type Generation struct {
	Code        string   `json:"generation" yaml:"generation"`
	MinYear     int      `json:"min_year" yaml:"min_year"`
	MaxYear     int      `json:"max_year" yaml:"max_year"`
	BodyType    string   `json:"body_type,omitempty" yaml:"body_type,omitempty"`
	EngineTypes []string `json:"engine_types,omitempty" yaml:"engine_types,omitempty"`
}

// StatsRecord holds rolling aggregates for one (make, model).
type StatsRecord struct {
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	SearchCount  int       `json:"search_count"`
	AvgPrice     float64   `json:"avg_price,omitempty"`
	AvgYear      float64   `json:"avg_year,omitempty"`
	AvgKM        float64   `json:"avg_km,omitempty"`
	LastSearched time.Time `json:"last_searched"`
}

// Alert is a stored price alert. The poll loop re-runs the search per
// alert and hands matches to a notifier.
type Alert struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	MaxPrice    int       `json:"max_price"`
	CreatedAt   time.Time `json:"created_at"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}
