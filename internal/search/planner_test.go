package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/config"
	"github.com/RobertM05/car-sniper/internal/model"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:    50,
		DefaultPages:    5,
		DeepLimit:       100,
		PerPageEstimate: 30,
		CacheTTLMin:     10,
		RONPerEUR:       4.97,
	}
}

func TestPlanDefaults(t *testing.T) {
	p := NewPlanner(catalog.New(nil), testSearchConfig())

	planned, err := p.Plan(context.Background(), model.SearchQuery{Make: "dacia", Model: "logan"})
	require.NoError(t, err)
	assert.Equal(t, 50, planned.Limit)
	assert.Equal(t, 5, planned.MaxPages)
	assert.Equal(t, model.SiteAll, planned.Site)
	assert.Equal(t, model.SortPrice, planned.Sort)
	assert.Equal(t, model.OrderAsc, planned.Order)
}

func TestPlanGenerationWindow(t *testing.T) {
	p := NewPlanner(catalog.New(nil), testSearchConfig())

	// User bounds inside the F30 production window survive.
	planned, err := p.Plan(context.Background(), model.SearchQuery{
		Make: "bmw", Model: "320d", Generation: "F30", MinYear: 2015, MaxYear: 2017,
	})
	require.NoError(t, err)
	assert.Equal(t, 2015, planned.MinYear)
	assert.Equal(t, 2017, planned.MaxYear)

	// Without user bounds the window is the full production range.
	planned, err = p.Plan(context.Background(), model.SearchQuery{
		Make: "bmw", Model: "320d", Generation: "F30",
	})
	require.NoError(t, err)
	assert.Equal(t, 2012, planned.MinYear)
	assert.Equal(t, 2019, planned.MaxYear)

	// Bounds wider than the window are clamped to it.
	planned, err = p.Plan(context.Background(), model.SearchQuery{
		Make: "bmw", Model: "320d", Generation: "F30", MinYear: 2000, MaxYear: 2030,
	})
	require.NoError(t, err)
	assert.Equal(t, 2012, planned.MinYear)
	assert.Equal(t, 2019, planned.MaxYear)
}

func TestPlanUnknownModelKeepsUserBounds(t *testing.T) {
	p := NewPlanner(catalog.New(nil), testSearchConfig())

	planned, err := p.Plan(context.Background(), model.SearchQuery{
		Make: "dacia", Model: "logan", MinYear: 2014, MaxYear: 2020,
	})
	require.NoError(t, err)
	assert.Equal(t, 2014, planned.MinYear)
	assert.Equal(t, 2020, planned.MaxYear)
}

func TestPlanDeepSearchPageBudget(t *testing.T) {
	p := NewPlanner(catalog.New(nil), testSearchConfig())

	planned, err := p.Plan(context.Background(), model.SearchQuery{
		Make: "bmw", Model: "320d", Limit: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, planned.MaxPages, "600 results at ~30 per page need 20 pages")

	// An explicit page budget is never overridden.
	planned, err = p.Plan(context.Background(), model.SearchQuery{
		Make: "bmw", Model: "320d", Limit: 600, MaxPages: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, planned.MaxPages)
}
