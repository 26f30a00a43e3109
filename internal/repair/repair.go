// Package repair fills in broken listing records from detail pages.
package repair

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RobertM05/car-sniper/internal/match"
	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/source"
)

// placeholderMarkers identify image URLs that are not real photos.
var placeholderMarkers = []string{"no_thumbnail", "/app/static"}

// luxuryLines are model tokens whose ads realistically never sell below
// the luxury floor. A lower listed price is almost always a scraping
// artifact (monthly rate, deposit, or truncated number), so such
// listings get a detail-page check.
var luxuryLines = map[string]bool{
	"x5": true, "x6": true, "x7": true,
	"q7": true, "q8": true,
	"gle": true, "gls": true, "g": true,
}

// Options configures the repair engine.
type Options struct {
	Timeout        time.Duration
	MaxConcurrent  int
	LuxuryFloorEUR int
	RONPerEUR      float64

	// OnGhost is called for each listing whose detail page proved the
	// ad no longer exists, before the listing is dropped.
	OnGhost func(ctx context.Context, link string)
}

// DetailFetcher is the slice of a source adapter the engine needs.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, link string) (*model.Detail, error)
}

// Engine runs the repair pass over matched listings.
type Engine struct {
	fetchers map[string]DetailFetcher
	opts     Options
}

// New creates an Engine over the given per-source detail fetchers.
func New(fetchers map[string]DetailFetcher, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.LuxuryFloorEUR <= 0 {
		opts.LuxuryFloorEUR = 15000
	}
	return &Engine{fetchers: fetchers, opts: opts}
}

// ImageMissing reports whether a listing has no usable photo.
func ImageMissing(imageURL string) bool {
	if strings.TrimSpace(imageURL) == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(imageURL, marker) {
			return true
		}
	}
	return false
}

// NeedsRepair reports whether a listing record is suspect: no usable
// photo, or a luxury-line car priced below the floor.
func (e *Engine) NeedsRepair(l model.CanonicalListing) bool {
	if ImageMissing(l.Image) {
		return true
	}
	if l.Price < e.opts.LuxuryFloorEUR && isLuxuryLine(l.Title) {
		return true
	}
	return false
}

func isLuxuryLine(title string) bool {
	for _, tok := range match.Tokens(title) {
		if luxuryLines[tok] {
			return true
		}
	}
	return false
}

// Run repairs the suspect listings in place and returns the survivors.
// Ghost ads and listings still missing a photo after repair are
// dropped; a price that could not be recovered keeps its original
// value. Order is preserved.
func (e *Engine) Run(ctx context.Context, listings []model.CanonicalListing) []model.CanonicalListing {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrent)

	for i := range listings {
		if !e.NeedsRepair(listings[i]) {
			continue
		}
		l := &listings[i]
		g.Go(func() error {
			e.repairOne(gctx, l)
			return nil
		})
	}
	_ = g.Wait()

	out := listings[:0:0]
	for _, l := range listings {
		if l.Repair == model.RepairGhost {
			continue
		}
		if ImageMissing(l.Image) && l.Repair != model.RepairNone {
			zap.L().Debug("repair: dropping listing without photo",
				zap.String("link", l.Link))
			continue
		}
		out = append(out, l)
	}
	return out
}

func (e *Engine) repairOne(ctx context.Context, l *model.CanonicalListing) {
	fetcher, ok := e.fetchers[l.Source]
	if !ok {
		l.Repair = model.RepairFailed
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	detail, err := fetcher.FetchDetail(fetchCtx, l.Link)
	if err != nil {
		if eris.Is(err, source.ErrAdRemoved) {
			e.markGhost(ctx, l)
			return
		}
		zap.L().Warn("repair: detail fetch failed",
			zap.String("link", l.Link), zap.Error(err))
		l.Repair = model.RepairFailed
		return
	}

	// A redirect onto a category or search page means the ad is gone;
	// real detail URLs carry the full slug.
	if detail.FinalURL != "" && len(detail.FinalURL) < 30 {
		e.markGhost(ctx, l)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detail.HTML))
	if err != nil {
		zap.L().Warn("repair: parse detail page failed",
			zap.String("link", l.Link), zap.Error(err))
		l.Repair = model.RepairFailed
		return
	}

	repaired := false
	if raw := runExtractors(doc, priceExtractors); raw != "" {
		if price, ok := match.ParsePrice(raw, e.opts.RONPerEUR); ok && price > l.Price {
			l.Price = price
			repaired = true
		}
	}
	if ImageMissing(l.Image) {
		if img := runExtractors(doc, imageExtractors); img != "" {
			l.Image = img
			repaired = true
		}
	}

	if repaired {
		l.Repair = model.RepairRepaired
	} else {
		l.Repair = model.RepairFailed
	}
}

func (e *Engine) markGhost(ctx context.Context, l *model.CanonicalListing) {
	l.Repair = model.RepairGhost
	zap.L().Info("repair: ghost ad dropped", zap.String("link", l.Link))
	if e.opts.OnGhost != nil {
		e.opts.OnGhost(ctx, l.Link)
	}
}
