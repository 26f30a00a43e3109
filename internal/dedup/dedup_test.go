package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertM05/car-sniper/internal/model"
)

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "gR4xz", CanonicalID("https://www.olx.ro/d/oferta/bmw-320d-IDgR4xz.html"))
	assert.Equal(t, "8aB2c", CanonicalID("https://www.autovit.ro/anunt/bmw-320d-xdrive-ID8aB2c.html"))

	// No recognizable id: the full link is the identity.
	link := "https://www.autovit.ro/anunt/bmw-320d"
	assert.Equal(t, link, CanonicalID(link))
}

func TestCollapseFirstSeenWins(t *testing.T) {
	in := []model.CanonicalListing{
		{Title: "first", Link: "https://www.olx.ro/d/oferta/bmw-320d-IDgR4xz.html", Price: 18500},
		{Title: "dupe", Link: "https://www.autovit.ro/anunt/bmw-320d-IDgR4xz.html", Price: 18400},
		{Title: "other", Link: "https://www.olx.ro/d/oferta/bmw-330d-IDzzz99.html", Price: 21000},
	}

	out := Collapse(in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "gR4xz", out[0].AdID)
	assert.Equal(t, "other", out[1].Title)
	assert.Equal(t, "zzz99", out[1].AdID)
}

func TestCollapseIdempotent(t *testing.T) {
	in := []model.CanonicalListing{
		{Link: "https://www.olx.ro/d/oferta/a-IDaa1.html"},
		{Link: "https://www.olx.ro/d/oferta/b-IDbb2.html"},
	}
	once := Collapse(in)
	twice := Collapse(once)
	assert.Equal(t, once, twice)
}

func TestCollapseEmpty(t *testing.T) {
	assert.Empty(t, Collapse(nil))
}
