// Package dedup collapses listings that point at the same ad.
package dedup

import (
	"regexp"

	"github.com/RobertM05/car-sniper/internal/model"
)

// adIDPattern matches the ad identifier both marketplaces embed at the
// end of their detail URLs, e.g. ".../bmw-320d-IDgR4xz.html".
var adIDPattern = regexp.MustCompile(`-ID([0-9A-Za-z]+)\.html`)

// CanonicalID extracts the source-embedded ad id from a detail link.
// Links without a recognizable id fall back to the full link, which
// still deduplicates exact resubmissions.
func CanonicalID(link string) string {
	if m := adIDPattern.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return link
}

// Collapse removes duplicate listings, keeping the first occurrence of
// each canonical id. Order is otherwise preserved, and each survivor has
// its AdID populated. Collapse is idempotent.
func Collapse(listings []model.CanonicalListing) []model.CanonicalListing {
	seen := make(map[string]bool, len(listings))
	out := listings[:0:0]
	for _, l := range listings {
		id := l.AdID
		if id == "" {
			id = CanonicalID(l.Link)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		l.AdID = id
		out = append(out, l)
	}
	return out
}
