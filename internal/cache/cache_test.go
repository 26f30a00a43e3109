package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
)

func TestGetPut(t *testing.T) {
	c := New(10 * time.Minute)
	q := model.SearchQuery{Make: "bmw", Model: "320d", MaxPrice: 20000}

	_, ok := c.Get(q)
	assert.False(t, ok)

	want := []model.CanonicalListing{{Title: "BMW 320d", Price: 18500}}
	c.Put(q, want)

	got, ok := c.Get(q)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// A different parameter tuple is a different key.
	q2 := q
	q2.MaxPrice = 19000
	_, ok = c.Get(q2)
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	q := model.SearchQuery{Make: "bmw", Model: "320d"}
	c.Put(q, []model.CanonicalListing{{Title: "BMW 320d"}})

	now = now.Add(9 * time.Minute)
	_, ok := c.Get(q)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(q)
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is dropped on lookup")
}

func TestPurge(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put(model.SearchQuery{Make: "bmw"}, nil)
	c.Put(model.SearchQuery{Make: "audi"}, nil)
	require.Equal(t, 2, c.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, c.Purge())
	assert.Zero(t, c.Len())
}

func TestZeroTTLDisables(t *testing.T) {
	c := New(0)
	q := model.SearchQuery{Make: "bmw"}
	c.Put(q, []model.CanonicalListing{{Title: "x"}})
	_, ok := c.Get(q)
	assert.False(t, ok)
}
