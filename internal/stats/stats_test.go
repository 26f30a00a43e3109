package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

func TestAverages(t *testing.T) {
	listings := []model.CanonicalListing{
		{Price: 18000, Year: 2016, KM: 150000},
		{Price: 20000, Year: 2018},
		{Price: 22000},
	}

	avgPrice, avgYear, avgKM := Averages(listings)
	assert.InDelta(t, 20000, avgPrice, 0.001)
	assert.InDelta(t, 2017, avgYear, 0.001)
	assert.InDelta(t, 150000, avgKM, 0.001)
}

func TestAveragesEmpty(t *testing.T) {
	avgPrice, avgYear, avgKM := Averages(nil)
	assert.Zero(t, avgPrice)
	assert.Zero(t, avgYear)
	assert.Zero(t, avgKM)
}

func TestRecordGating(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })

	rec := New(st)
	hits := []model.CanonicalListing{{Price: 18000, Year: 2016, KM: 150000}}

	// Zero-hit runs are not recorded.
	rec.Record(ctx, model.SearchQuery{Make: "bmw", Model: "320d"}, nil)
	got, err := st.GetStats(ctx, "bmw", "320d")
	require.NoError(t, err)
	assert.Nil(t, got, "empty result sets leave no stats row")

	// Make-only queries have no model to attribute the row to.
	rec.Record(ctx, model.SearchQuery{Make: "bmw"}, hits)
	got, err = st.GetStats(ctx, "bmw", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A full (make, model) pair with hits is recorded.
	rec.Record(ctx, model.SearchQuery{Make: "bmw", Model: "320d"}, hits)
	got, err = st.GetStats(ctx, "bmw", "320d")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.SearchCount)
	assert.InDelta(t, 18000, got.AvgPrice, 0.001)
}
