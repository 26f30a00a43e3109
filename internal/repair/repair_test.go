package repair

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/source"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*model.Detail
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) FetchDetail(_ context.Context, link string) (*model.Detail, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, link)
	f.mu.Unlock()
	if err, ok := f.errs[link]; ok {
		return nil, err
	}
	if d, ok := f.pages[link]; ok {
		return d, nil
	}
	return nil, source.ErrUnavailable
}

func newEngine(f *fakeFetcher, onGhost func(context.Context, string)) *Engine {
	return New(map[string]DetailFetcher{model.SourceOLX: f}, Options{
		LuxuryFloorEUR: 15000,
		RONPerEUR:      4.97,
		OnGhost:        onGhost,
	})
}

const detailWithNextData = `<html><head>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"advert":{"price":{"value":23500},"photos":[{"large":"https://img/large.jpg","medium":"https://img/medium.jpg"}]}}}}
</script></head><body></body></html>`

const detailWithOGImage = `<html><head>
<meta property="og:image" content="https://img/og.jpg">
</head><body></body></html>`

func TestImageMissing(t *testing.T) {
	assert.True(t, ImageMissing(""))
	assert.True(t, ImageMissing("https://x/no_thumbnail.png"))
	assert.True(t, ImageMissing("/app/static/placeholder.jpg"))
	assert.False(t, ImageMissing("https://img/real.jpg"))
}

func TestNeedsRepair(t *testing.T) {
	e := newEngine(&fakeFetcher{}, nil)

	assert.True(t, e.NeedsRepair(model.CanonicalListing{Title: "BMW 320d", Price: 18000}), "missing image")
	assert.True(t, e.NeedsRepair(model.CanonicalListing{Title: "BMW X5 xDrive40d", Price: 900, Image: "https://img/a.jpg"}), "luxury line under floor")
	assert.False(t, e.NeedsRepair(model.CanonicalListing{Title: "BMW 320d", Price: 900, Image: "https://img/a.jpg"}), "cheap non-luxury is plausible")
	assert.False(t, e.NeedsRepair(model.CanonicalListing{Title: "BMW X5", Price: 25000, Image: "https://img/a.jpg"}))
}

func TestRunRepairsImageAndPrice(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*model.Detail{
		"https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html": {
			HTML:     detailWithNextData,
			FinalURL: "https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html",
		},
	}}
	e := newEngine(f, nil)

	in := []model.CanonicalListing{{
		Title:  "BMW X5 xDrive30d",
		Price:  1200,
		Link:   "https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html",
		Source: model.SourceOLX,
		Repair: model.RepairNone,
	}}

	out := e.Run(context.Background(), in)
	require.Len(t, out, 1)
	assert.Equal(t, 23500, out[0].Price)
	assert.Equal(t, "https://img/large.jpg", out[0].Image)
	assert.Equal(t, model.RepairRepaired, out[0].Repair)
}

func TestRunKeepsHigherOriginalPrice(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*model.Detail{
		"https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html": {
			HTML:     detailWithNextData,
			FinalURL: "https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html",
		},
	}}
	e := newEngine(f, nil)

	in := []model.CanonicalListing{{
		Title:  "BMW X5",
		Price:  30000,
		Link:   "https://www.olx.ro/d/oferta/bmw-x5-IDaa1.html",
		Source: model.SourceOLX,
		Repair: model.RepairNone,
	}}

	// Image is missing, so the listing is repaired, but the recovered
	// price (23500) is lower and must not overwrite the original.
	out := e.Run(context.Background(), in)
	require.Len(t, out, 1)
	assert.Equal(t, 30000, out[0].Price)
	assert.Equal(t, "https://img/large.jpg", out[0].Image)
}

func TestRunDropsGhosts(t *testing.T) {
	f := &fakeFetcher{
		errs: map[string]error{
			"https://www.olx.ro/d/oferta/gone-IDgg1.html": source.ErrAdRemoved,
		},
		pages: map[string]*model.Detail{
			// Redirected onto a short category URL: also a ghost.
			"https://www.olx.ro/d/oferta/moved-IDmm2.html": {
				HTML:     "<html></html>",
				FinalURL: "https://www.olx.ro/auto",
			},
		},
	}

	var ghosted []string
	e := newEngine(f, func(_ context.Context, link string) { ghosted = append(ghosted, link) })

	in := []model.CanonicalListing{
		{Title: "BMW 320d", Price: 18000, Link: "https://www.olx.ro/d/oferta/gone-IDgg1.html", Source: model.SourceOLX},
		{Title: "BMW 320d", Price: 17000, Link: "https://www.olx.ro/d/oferta/moved-IDmm2.html", Source: model.SourceOLX},
		{Title: "BMW 320d", Price: 16000, Link: "https://www.olx.ro/d/oferta/fine-IDff3.html", Image: "https://img/ok.jpg", Source: model.SourceOLX},
	}

	out := e.Run(context.Background(), in)
	require.Len(t, out, 1)
	assert.Equal(t, "https://www.olx.ro/d/oferta/fine-IDff3.html", out[0].Link)
	assert.ElementsMatch(t, []string{
		"https://www.olx.ro/d/oferta/gone-IDgg1.html",
		"https://www.olx.ro/d/oferta/moved-IDmm2.html",
	}, ghosted)
}

func TestRunDropsUnrepairableImage(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*model.Detail{
		"https://www.olx.ro/d/oferta/noimg-IDnn1.html": {
			HTML:     "<html><body>nothing useful</body></html>",
			FinalURL: "https://www.olx.ro/d/oferta/noimg-IDnn1.html",
		},
	}}
	e := newEngine(f, nil)

	in := []model.CanonicalListing{{
		Title:  "BMW 320d",
		Price:  18000,
		Link:   "https://www.olx.ro/d/oferta/noimg-IDnn1.html",
		Source: model.SourceOLX,
	}}

	assert.Empty(t, e.Run(context.Background(), in))
}

func TestRunSkipsHealthyListings(t *testing.T) {
	f := &fakeFetcher{}
	e := newEngine(f, nil)

	in := []model.CanonicalListing{{
		Title:  "BMW 320d",
		Price:  18500,
		Image:  "https://img/ok.jpg",
		Link:   "https://www.olx.ro/d/oferta/ok-IDok1.html",
		Source: model.SourceOLX,
		Repair: model.RepairNone,
	}}

	out := e.Run(context.Background(), in)
	require.Len(t, out, 1)
	assert.Empty(t, f.fetched, "healthy listings are never refetched")
	assert.Equal(t, model.RepairNone, out[0].Repair)
}
