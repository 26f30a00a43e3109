package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGenerationsBuiltinFallback(t *testing.T) {
	c := New(nil)
	gens, err := c.Generations(context.Background(), "bmw", "320d")
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, "E90", gens[0].Code)
	assert.Equal(t, "F30", gens[1].Code)
}

func TestGenerationsStoreWins(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.UpsertCatalogEntry(ctx, model.CatalogEntry{
		Make: "bmw", Model: "seria-3", Generation: "G20", MinYear: 2019, MaxYear: 2025,
	}))

	c := New(st)
	gens, err := c.Generations(ctx, "bmw", "320d")
	require.NoError(t, err)
	require.Len(t, gens, 1, "stored rows replace the built-in table")
	assert.Equal(t, "G20", gens[0].Code)
	assert.Equal(t, 2025, gens[0].MaxYear)
}

func TestResolveYearWindowGeneration(t *testing.T) {
	c := New(nil)

	minY, maxY, err := c.ResolveYearWindow(context.Background(), "bmw", "320d", "F30", 2015, 2017)
	require.NoError(t, err)
	assert.Equal(t, 2015, minY)
	assert.Equal(t, 2017, maxY)

	minY, maxY, err = c.ResolveYearWindow(context.Background(), "bmw", "320d", "F30", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2012, minY)
	assert.Equal(t, 2019, maxY)
}

func TestResolveYearWindowModelEntry(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.UpsertCatalogEntry(ctx, model.CatalogEntry{
		Make: "bmw", Model: "seria-3", MinYear: 2012, MaxYear: 2024,
	}))

	c := New(st)
	// "320d" is looked up under its canonical token.
	minY, maxY, err := c.ResolveYearWindow(ctx, "bmw", "320d", "", 2010, 0)
	require.NoError(t, err)
	assert.Equal(t, 2012, minY)
	assert.Equal(t, 2024, maxY)
}

func TestResolveYearWindowUnknownModel(t *testing.T) {
	c := New(nil)
	minY, maxY, err := c.ResolveYearWindow(context.Background(), "dacia", "logan", "", 2014, 2020)
	require.NoError(t, err)
	assert.Equal(t, 2014, minY)
	assert.Equal(t, 2020, maxY)
}
