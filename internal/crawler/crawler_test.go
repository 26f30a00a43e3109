package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/config"
	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

type fakeSearcher struct {
	queries []model.SearchQuery
	hits    []model.CanonicalListing
}

func (f *fakeSearcher) Search(_ context.Context, q model.SearchQuery) ([]model.CanonicalListing, error) {
	f.queries = append(f.queries, q)
	return f.hits, nil
}

func writeTargets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTargets(t *testing.T) {
	path := writeTargets(t, `targets:
  - make: bmw
    model: 320d
    max_price: 20000
  - make: audi
    model: a4
`)
	targets, err := LoadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, Target{Make: "bmw", Model: "320d", MaxPrice: 20000}, targets[0])
	assert.Equal(t, Target{Make: "audi", Model: "a4"}, targets[1])
}

func TestLoadTargetsRejectsMissingMake(t *testing.T) {
	path := writeTargets(t, `targets:
  - model: 320d
`)
	_, err := LoadTargets(path)
	assert.Error(t, err)
}

func TestRunCyclePersistsAndRetires(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	defer func() { _ = st.Close() }()

	path := writeTargets(t, `targets:
  - make: bmw
    model: 320d
    max_price: 20000
`)

	searcher := &fakeSearcher{hits: []model.CanonicalListing{
		{Title: "BMW 320d xDrive", Price: 18500, Year: 2017, KM: 150000,
			Link: "https://www.olx.ro/d/oferta/bmw-IDaa1.html", Image: "https://img/a.jpg",
			Source: model.SourceOLX},
	}}

	c := New(st, searcher, config.CrawlerConfig{
		TargetsFile:     path,
		StaleAfterHours: 24,
		DeepSearchLimit: 1000,
		DeepSearchPages: 20,
	})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	require.NoError(t, c.RunCycle(ctx))

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, 1000, searcher.queries[0].Limit)
	assert.Equal(t, 20, searcher.queries[0].MaxPages)
	assert.Equal(t, 20000, searcher.queries[0].MaxPrice)

	ads, err := st.SearchAds(ctx, store.AdFilter{Make: "bmw"})
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, "BMW 320d xDrive", ads[0].Title)
	assert.Equal(t, 18500, ads[0].Price)
	assert.True(t, ads[0].Active)
}
