package search

import (
	"context"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/config"
	"github.com/RobertM05/car-sniper/internal/model"
)

// Planner turns a user query into an executable one: defaults applied,
// year bounds narrowed by catalog knowledge, page budget sized to the
// requested result count.
type Planner struct {
	catalog *catalog.Catalog
	cfg     config.SearchConfig
}

// NewPlanner creates a Planner.
func NewPlanner(cat *catalog.Catalog, cfg config.SearchConfig) *Planner {
	return &Planner{catalog: cat, cfg: cfg}
}

// Plan resolves defaults and catalog bounds. The returned query is a
// copy; the caller's query is never mutated.
func (p *Planner) Plan(ctx context.Context, q model.SearchQuery) (model.SearchQuery, error) {
	if q.Limit <= 0 {
		q.Limit = p.cfg.DefaultLimit
	}
	if q.Site == "" {
		q.Site = model.SiteAll
	}
	if q.Sort == "" {
		q.Sort = model.SortPrice
	}
	if q.Order == "" {
		q.Order = model.OrderAsc
	}

	if q.MaxPages <= 0 {
		q.MaxPages = p.cfg.DefaultPages
		// Deep searches get a proportional page budget; the default
		// few pages cannot physically yield hundreds of listings.
		if p.cfg.DeepLimit > 0 && q.Limit > p.cfg.DeepLimit && p.cfg.PerPageEstimate > 0 {
			pages := q.Limit / p.cfg.PerPageEstimate
			if pages > q.MaxPages {
				q.MaxPages = pages
			}
		}
	}

	if p.catalog != nil {
		minYear, maxYear, err := p.catalog.ResolveYearWindow(ctx, q.Make, q.Model, q.Generation, q.MinYear, q.MaxYear)
		if err != nil {
			return q, err
		}
		q.MinYear, q.MaxYear = minYear, maxYear
	}

	return q, nil
}
