package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/RobertM05/car-sniper/internal/cache"
	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/match"
	"github.com/RobertM05/car-sniper/internal/repair"
	"github.com/RobertM05/car-sniper/internal/search"
	"github.com/RobertM05/car-sniper/internal/source"
	"github.com/RobertM05/car-sniper/internal/stats"
	"github.com/RobertM05/car-sniper/internal/store"
)

// openStore opens and migrates the configured database backend.
func openStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// buildService wires the full search pipeline over the given store.
// Ghost ads found during repair are deleted from the store as a side
// effect.
func buildService(st store.Store) *search.Service {
	client := source.NewClient(source.ClientOptions{
		Timeout:      cfg.Sources.FetchTimeout(),
		MaxRetries:   cfg.Sources.MaxRetries,
		RatePerHost:  cfg.Sources.RatePerHost,
		PageCacheTTL: cfg.Sources.PageCacheTTL(),
	})

	olx := source.NewOLX(cfg.Sources.OLXBaseURL, client)
	autovit := source.NewAutovit(cfg.Sources.AutovitBaseURL, client)
	sources := []source.Source{olx, autovit}

	engine := repair.New(map[string]repair.DetailFetcher{
		olx.Name():     olx,
		autovit.Name(): autovit,
	}, repair.Options{
		Timeout:        cfg.Repair.Timeout(),
		MaxConcurrent:  cfg.Repair.MaxConcurrent,
		LuxuryFloorEUR: cfg.Repair.LuxuryFloorEUR,
		RONPerEUR:      cfg.Search.RONPerEUR,
		OnGhost: func(ctx context.Context, link string) {
			_ = st.DeleteAdByLink(ctx, link)
		},
	})

	planner := search.NewPlanner(catalog.New(st), cfg.Search)
	return search.NewService(
		sources,
		planner,
		match.NewFilter(cfg.Search.RONPerEUR),
		engine,
		cache.New(cfg.Search.CacheTTL()),
		stats.New(st),
		cfg.Sources.FetchTimeout(),
	)
}
