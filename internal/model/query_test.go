package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStable(t *testing.T) {
	a := SearchQuery{Make: "BMW", Model: "320d", MaxPrice: 20000, Site: "ALL"}
	b := SearchQuery{Make: "bmw", Model: "320D", MaxPrice: 20000, Site: "all"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "case does not change the key")
}

func TestFingerprintDistinguishesParameters(t *testing.T) {
	base := SearchQuery{Make: "bmw", Model: "320d", MaxPrice: 20000}

	changed := base
	changed.MaxPrice = 19999
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())

	changed = base
	changed.Order = OrderDesc
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())

	changed = base
	changed.Generation = "F30"
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())
}
