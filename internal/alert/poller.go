// Package alert matches saved price alerts against fresh search results.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// Searcher is the slice of the search service the poller needs.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.CanonicalListing, error)
}

// Poller periodically re-runs each saved alert as a search and notifies
// on hits under the alert's price ceiling.
type Poller struct {
	store    store.Store
	searcher Searcher
	notifier Notifier
	interval time.Duration
}

// NewPoller creates a Poller. A nil notifier falls back to logging.
func NewPoller(st store.Store, searcher Searcher, notifier Notifier, interval time.Duration) *Poller {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Poller{store: st, searcher: searcher, notifier: notifier, interval: interval}
}

// Run polls until the context is cancelled. One pass runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce evaluates every saved alert a single time. Failures on one
// alert never stop the rest.
func (p *Poller) RunOnce(ctx context.Context) {
	alerts, err := p.store.ListAlerts(ctx)
	if err != nil {
		zap.L().Warn("alert: list alerts failed", zap.Error(err))
		return
	}

	for _, a := range alerts {
		hits, err := p.evaluate(ctx, a)
		if err != nil {
			zap.L().Warn("alert: evaluate failed",
				zap.String("alert_id", a.ID), zap.Error(err))
			continue
		}
		if len(hits) > 0 {
			if err := p.notifier.Notify(ctx, a, hits); err != nil {
				zap.L().Warn("alert: notify failed",
					zap.String("alert_id", a.ID), zap.Error(err))
				continue
			}
		}
		if err := p.store.TouchAlert(ctx, a.ID); err != nil {
			zap.L().Warn("alert: touch failed",
				zap.String("alert_id", a.ID), zap.Error(err))
		}
	}
}

func (p *Poller) evaluate(ctx context.Context, a model.Alert) ([]model.CanonicalListing, error) {
	q := model.SearchQuery{
		Make:     a.Make,
		Model:    a.Model,
		MaxPrice: a.MaxPrice,
		Sort:     model.SortPrice,
		Order:    model.OrderAsc,
	}
	return p.searcher.Search(ctx, q)
}
