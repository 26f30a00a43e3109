// Package stats aggregates per-model search statistics.
package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// Recorder persists per-(make, model) search statistics. Averages are
// computed over the listings that actually carry the field, so a result
// set with three priced ads and one year-less ad still yields sensible
// means.
type Recorder struct {
	store store.Store
}

// New creates a Recorder over the given store.
func New(st store.Store) *Recorder {
	return &Recorder{store: st}
}

// Record bumps the search counter for the query's make and model and
// folds the result set's averages into the stored row. Empty result
// sets and queries without a full (make, model) pair are not recorded;
// a zero-hit or make-only search says nothing about the model's market.
// Recording is best-effort: failures are logged, never surfaced to the
// caller.
func (r *Recorder) Record(ctx context.Context, q model.SearchQuery, listings []model.CanonicalListing) {
	if r == nil || r.store == nil {
		return
	}
	if len(listings) == 0 || q.Make == "" || q.Model == "" {
		return
	}
	avgPrice, avgYear, avgKM := Averages(listings)
	if err := r.store.RecordSearch(ctx, q.Make, q.Model, avgPrice, avgYear, avgKM); err != nil {
		zap.L().Warn("stats: record search failed",
			zap.String("make", q.Make),
			zap.String("model", q.Model),
			zap.Error(err))
	}
}

// Averages computes the mean price, year and km over the listings that
// carry each field. A field absent from every listing averages to zero.
func Averages(listings []model.CanonicalListing) (avgPrice, avgYear, avgKM float64) {
	var priceSum, yearSum, kmSum float64
	var priceN, yearN, kmN int
	for _, l := range listings {
		if l.Price > 0 {
			priceSum += float64(l.Price)
			priceN++
		}
		if l.Year > 0 {
			yearSum += float64(l.Year)
			yearN++
		}
		if l.KM > 0 {
			kmSum += float64(l.KM)
			kmN++
		}
	}
	if priceN > 0 {
		avgPrice = priceSum / float64(priceN)
	}
	if yearN > 0 {
		avgYear = yearSum / float64(yearN)
	}
	if kmN > 0 {
		avgKM = kmSum / float64(kmN)
	}
	return avgPrice, avgYear, avgKM
}
