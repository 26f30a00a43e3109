// Package crawler keeps the ad store warm by deep-searching a fixed
// target list in the background.
package crawler

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RobertM05/car-sniper/internal/config"
	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// Target is one crawl subject.
type Target struct {
	Make     string `yaml:"make"`
	Model    string `yaml:"model"`
	MaxPrice int    `yaml:"max_price,omitempty"`
	MaxKM    int    `yaml:"max_km,omitempty"`
}

// LoadTargets reads the crawl target list from a YAML file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: read targets file %s", path)
	}
	var doc struct {
		Targets []Target `yaml:"targets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "crawler: parse targets file %s", path)
	}
	for _, tgt := range doc.Targets {
		if tgt.Make == "" {
			return nil, eris.Errorf("crawler: target without make in %s", path)
		}
	}
	return doc.Targets, nil
}

// Searcher is the slice of the search service the crawler needs.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.CanonicalListing, error)
}

// Crawler cycles over its targets, persisting everything it finds.
type Crawler struct {
	store    store.Store
	searcher Searcher
	cfg      config.CrawlerConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Crawler.
func New(st store.Store, searcher Searcher, cfg config.CrawlerConfig) *Crawler {
	return &Crawler{
		store:    st,
		searcher: searcher,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// Run crawls until the context is cancelled.
func (c *Crawler) Run(ctx context.Context) error {
	for {
		if err := c.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Error("crawler: cycle failed", zap.Error(err))
		}
		if err := c.sleep(ctx, time.Duration(c.cfg.CycleSleepMin)*time.Minute); err != nil {
			return err
		}
	}
}

// RunCycle crawls every target once, then retires ads not seen for the
// stale window.
func (c *Crawler) RunCycle(ctx context.Context) error {
	targets, err := LoadTargets(c.cfg.TargetsFile)
	if err != nil {
		return err
	}

	for _, tgt := range targets {
		if err := c.crawlTarget(ctx, tgt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			zap.L().Warn("crawler: target failed",
				zap.String("make", tgt.Make),
				zap.String("model", tgt.Model),
				zap.Error(err))
		}
		if err := c.sleep(ctx, time.Duration(c.cfg.TargetSleepSec)*time.Second); err != nil {
			return err
		}
	}

	stale := time.Duration(c.cfg.StaleAfterHours) * time.Hour
	if stale > 0 {
		n, err := c.store.DeactivateStaleAds(ctx, stale)
		if err != nil {
			return eris.Wrap(err, "crawler: deactivate stale ads")
		}
		if n > 0 {
			zap.L().Info("crawler: retired stale ads", zap.Int("count", n))
		}
	}
	return nil
}

func (c *Crawler) crawlTarget(ctx context.Context, tgt Target) error {
	q := model.SearchQuery{
		Make:     tgt.Make,
		Model:    tgt.Model,
		MaxPrice: tgt.MaxPrice,
		MaxKM:    tgt.MaxKM,
		Limit:    c.cfg.DeepSearchLimit,
		MaxPages: c.cfg.DeepSearchPages,
	}

	listings, err := c.searcher.Search(ctx, q)
	if err != nil {
		return eris.Wrapf(err, "crawler: search %s %s", tgt.Make, tgt.Model)
	}

	stored := 0
	for _, l := range listings {
		ad := model.StoredAd{
			Source:   l.Source,
			Title:    l.Title,
			Price:    l.Price,
			Currency: "EUR",
			Link:     l.Link,
			Image:    l.Image,
			Make:     tgt.Make,
			Model:    tgt.Model,
			Year:     l.Year,
			KM:       l.KM,
		}
		if _, err := c.store.UpsertAd(ctx, ad); err != nil {
			zap.L().Warn("crawler: upsert failed",
				zap.String("link", l.Link), zap.Error(err))
			continue
		}
		stored++
	}

	zap.L().Info("crawler: target done",
		zap.String("make", tgt.Make),
		zap.String("model", tgt.Model),
		zap.Int("found", len(listings)),
		zap.Int("stored", stored))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
