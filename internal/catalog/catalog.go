// Package catalog resolves user search intent against known model
// generations and year ranges.
package catalog

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// Catalog answers year-window and generation queries over the stored
// model catalog, falling back to built-in generation knowledge for the
// common German model lines.
type Catalog struct {
	store store.Store
}

// New creates a Catalog over the given store.
func New(st store.Store) *Catalog {
	return &Catalog{store: st}
}

// builtinGenerations covers model lines whose generation splits are well
// known, keyed by (make, normalized model). Store rows take precedence.
var builtinGenerations = map[string][]model.Generation{
	"bmw/seria-3": {
		{Code: "E90", MinYear: 2005, MaxYear: 2012, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "F30", MinYear: 2012, MaxYear: 2019, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "G20", MinYear: 2019, MaxYear: 2024, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol", "hybrid"}},
	},
	"bmw/seria-5": {
		{Code: "E60", MinYear: 2003, MaxYear: 2010, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "F10", MinYear: 2010, MaxYear: 2017, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "G30", MinYear: 2017, MaxYear: 2024, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol", "hybrid"}},
	},
	"audi/a4": {
		{Code: "B7", MinYear: 2004, MaxYear: 2008, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "B8", MinYear: 2008, MaxYear: 2016, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "B9", MinYear: 2016, MaxYear: 2024, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol", "hybrid"}},
	},
	"mercedes/c": {
		{Code: "W204", MinYear: 2007, MaxYear: 2014, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "W205", MinYear: 2014, MaxYear: 2021, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "W206", MinYear: 2021, MaxYear: 2024, BodyType: "sedan", EngineTypes: []string{"diesel", "petrol", "hybrid"}},
	},
	"volkswagen/golf": {
		{Code: "Mk5", MinYear: 2003, MaxYear: 2008, BodyType: "hatchback", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "Mk6", MinYear: 2008, MaxYear: 2012, BodyType: "hatchback", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "Mk7", MinYear: 2012, MaxYear: 2019, BodyType: "hatchback", EngineTypes: []string{"diesel", "petrol"}},
		{Code: "Mk8", MinYear: 2019, MaxYear: 2024, BodyType: "hatchback", EngineTypes: []string{"diesel", "petrol", "hybrid"}},
	},
}

// Generations lists the known generations for a model, preferring stored
// catalog rows over the built-in table.
func (c *Catalog) Generations(ctx context.Context, makeName, modelName string) ([]model.Generation, error) {
	token := NormalizeQueryToken(makeName, modelName)

	if c.store != nil {
		gens, err := c.store.ListGenerations(ctx, makeName, token)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: list generations")
		}
		if len(gens) > 0 {
			return gens, nil
		}
	}

	if gens, ok := builtinGenerations[ruleKey(makeName)+"/"+token]; ok {
		return gens, nil
	}
	return nil, nil
}

// ResolveYearWindow intersects catalog knowledge with the user-supplied
// year bounds. A zero userMin/userMax means the bound was not given. When
// neither a generation nor a model-level entry is known, the user bounds
// come back unchanged.
func (c *Catalog) ResolveYearWindow(ctx context.Context, makeName, modelName, generation string, userMin, userMax int) (int, int, error) {
	if generation != "" {
		gens, err := c.Generations(ctx, makeName, modelName)
		if err != nil {
			return 0, 0, err
		}
		for _, g := range gens {
			if generationMatches(g.Code, generation) && g.MinYear > 0 && g.MaxYear > 0 {
				return intersect(userMin, userMax, g.MinYear, g.MaxYear)
			}
		}
	}

	entry, err := c.lookupEntry(ctx, makeName, modelName)
	if err != nil {
		return 0, 0, err
	}
	if entry == nil || entry.MinYear == 0 || entry.MaxYear == 0 {
		return userMin, userMax, nil
	}
	return intersect(userMin, userMax, entry.MinYear, entry.MaxYear)
}

func (c *Catalog) lookupEntry(ctx context.Context, makeName, modelName string) (*model.CatalogEntry, error) {
	if c.store == nil {
		return nil, nil
	}

	entry, err := c.store.GetCatalogEntry(ctx, makeName, strings.ToLower(modelName))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get entry")
	}
	if entry != nil {
		return entry, nil
	}

	// Retry under the canonical token: "320d" is catalogued as "seria-3".
	token := NormalizeQueryToken(makeName, modelName)
	if token == strings.ToLower(modelName) {
		return nil, nil
	}
	entry, err = c.store.GetCatalogEntry(ctx, makeName, token)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get entry by token")
	}
	return entry, nil
}

// generationMatches compares generation codes loosely: exact match or
// containment either way, case-insensitive. Catalog rows sometimes carry
// combined codes like "F30/G20".
func generationMatches(have, want string) bool {
	h := strings.ToUpper(strings.TrimSpace(have))
	w := strings.ToUpper(strings.TrimSpace(want))
	if h == "" || w == "" {
		return false
	}
	return h == w || strings.Contains(h, w) || strings.Contains(w, h)
}

func intersect(userMin, userMax, catMin, catMax int) (int, int, error) {
	outMin := catMin
	if userMin > 0 && userMin > catMin {
		outMin = userMin
	}
	outMax := catMax
	if userMax > 0 && userMax < catMax {
		outMax = userMax
	}
	return outMin, outMax, nil
}
