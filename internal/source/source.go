// Package source adapts marketplace sites into a uniform listing feed.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/RobertM05/car-sniper/internal/model"
)

// ErrAdRemoved marks a detail page that no longer exists: the ad was
// sold or withdrawn. Callers drop the listing.
var ErrAdRemoved = eris.New("source: ad removed")

// ErrUnavailable marks a source that could not be reached or kept
// failing after retries. The search continues with the other sources.
var ErrUnavailable = eris.New("source: unavailable")

// Source is one marketplace adapter. Fetch returns raw candidate
// listings for a query across up to maxPages result pages; FetchDetail
// retrieves a single ad's detail page for record repair.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q model.SearchQuery, maxPages int) ([]model.RawListing, error)
	FetchDetail(ctx context.Context, link string) (*model.Detail, error)
}
