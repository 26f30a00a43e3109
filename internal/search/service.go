// Package search runs the full pipeline: plan, fetch, match, repair,
// dedup, rank.
package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RobertM05/car-sniper/internal/cache"
	"github.com/RobertM05/car-sniper/internal/dedup"
	"github.com/RobertM05/car-sniper/internal/match"
	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/repair"
	"github.com/RobertM05/car-sniper/internal/source"
	"github.com/RobertM05/car-sniper/internal/stats"
)

// Service owns the search pipeline. Every collaborator is injected;
// nothing global beyond the logger.
type Service struct {
	sources      []source.Source
	planner      *Planner
	filter       *match.Filter
	repairer     *repair.Engine
	cache        *cache.ResultCache
	stats        *stats.Recorder
	fetchTimeout time.Duration
}

// NewService wires the pipeline. The repair engine, cache and stats
// recorder may be nil; the corresponding stage is then skipped.
func NewService(sources []source.Source, planner *Planner, filter *match.Filter,
	repairer *repair.Engine, resultCache *cache.ResultCache, recorder *stats.Recorder,
	fetchTimeout time.Duration) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 12 * time.Second
	}
	return &Service{
		sources:      sources,
		planner:      planner,
		filter:       filter,
		repairer:     repairer,
		cache:        resultCache,
		stats:        recorder,
		fetchTimeout: fetchTimeout,
	}
}

// Search executes one query end to end. Source failures degrade the
// result instead of failing it: a search where every source is down
// returns an empty slice and no error.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) ([]model.CanonicalListing, error) {
	planned, err := s.planner.Plan(ctx, q)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(planned); ok {
			zap.L().Debug("search: cache hit",
				zap.String("make", planned.Make), zap.String("model", planned.Model))
			return cached, nil
		}
	}

	raw := s.fetchAll(ctx, planned)

	listings := s.filter.Apply(planned, raw)
	if s.repairer != nil {
		listings = s.repairer.Run(ctx, listings)
	}
	listings = dedup.Collapse(listings)
	sortListings(listings, planned.Sort, planned.Order)
	if planned.Limit > 0 && len(listings) > planned.Limit {
		listings = listings[:planned.Limit]
	}

	if s.stats != nil {
		s.stats.Record(ctx, planned, listings)
	}
	if s.cache != nil {
		s.cache.Put(planned, listings)
	}

	zap.L().Info("search: done",
		zap.String("make", planned.Make),
		zap.String("model", planned.Model),
		zap.Int("raw", len(raw)),
		zap.Int("results", len(listings)))
	return listings, nil
}

// fetchAll fans out to the selected sources concurrently. Each source
// gets its own timeout; a failing source contributes zero listings.
func (s *Service) fetchAll(ctx context.Context, q model.SearchQuery) []model.RawListing {
	var mu sync.Mutex
	var raw []model.RawListing

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		if q.Site != model.SiteAll && q.Site != src.Name() {
			continue
		}
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
			defer cancel()

			listings, err := src.Fetch(fetchCtx, q, q.MaxPages)
			if err != nil {
				zap.L().Warn("search: source failed",
					zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			mu.Lock()
			raw = append(raw, listings...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return raw
}

func sortListings(listings []model.CanonicalListing, key model.SortKey, order model.SortOrder) {
	less := func(a, b model.CanonicalListing) bool {
		switch key {
		case model.SortYear:
			return a.Year < b.Year
		case model.SortKM:
			return a.KM < b.KM
		default:
			return a.Price < b.Price
		}
	}
	sort.SliceStable(listings, func(i, j int) bool {
		if order == model.OrderDesc {
			return less(listings[j], listings[i])
		}
		return less(listings[i], listings[j])
	})
}
