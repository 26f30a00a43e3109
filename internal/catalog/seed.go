package catalog

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/RobertM05/car-sniper/internal/model"
	"github.com/RobertM05/car-sniper/internal/store"
)

// sampleEntries is the curated starter catalog: the model lines most
// searched on the Romanian market, with production windows.
var sampleEntries = []model.CatalogEntry{
	{Make: "bmw", Model: "seria-3", MinYear: 2012, MaxYear: 2024, BodyType: "sedan", Variants: []string{"320d", "330d", "320i", "330i"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "bmw", Model: "seria-5", MinYear: 2010, MaxYear: 2024, BodyType: "sedan", Variants: []string{"520d", "530d", "520i", "530i"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "bmw", Model: "x3", MinYear: 2010, MaxYear: 2024, BodyType: "suv", Variants: []string{"x3", "xdrive30d", "xdrive20d"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "bmw", Model: "x5", MinYear: 2006, MaxYear: 2024, BodyType: "suv", Variants: []string{"x5", "xdrive30d", "xdrive40d"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "audi", Model: "a4", MinYear: 2008, MaxYear: 2024, BodyType: "sedan", Variants: []string{"a4", "avant", "allroad"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "audi", Model: "a6", MinYear: 2011, MaxYear: 2024, BodyType: "sedan", Variants: []string{"a6", "avant", "allroad"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "audi", Model: "q5", MinYear: 2008, MaxYear: 2024, BodyType: "suv", Variants: []string{"q5", "sq5"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "audi", Model: "q7", MinYear: 2006, MaxYear: 2024, BodyType: "suv", Variants: []string{"q7", "sq7"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "mercedes", Model: "c", MinYear: 2007, MaxYear: 2024, BodyType: "sedan", Variants: []string{"c220d", "c250d", "c200", "c250"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "mercedes", Model: "e", MinYear: 2009, MaxYear: 2024, BodyType: "sedan", Variants: []string{"e220d", "e250d", "e200", "e250"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "mercedes", Model: "g", MinYear: 2005, MaxYear: 2024, BodyType: "suv", Variants: []string{"g350d", "g500", "g63"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "volkswagen", Model: "golf", MinYear: 2008, MaxYear: 2024, BodyType: "hatchback", Variants: []string{"golf", "gti", "gtd"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "volkswagen", Model: "passat", MinYear: 2010, MaxYear: 2024, BodyType: "sedan", Variants: []string{"passat", "passat-variant"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "volkswagen", Model: "tiguan", MinYear: 2007, MaxYear: 2024, BodyType: "suv", Variants: []string{"tiguan", "tiguan-allspace"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "skoda", Model: "octavia", MinYear: 2013, MaxYear: 2024, BodyType: "sedan", Variants: []string{"octavia", "octavia-combi"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "skoda", Model: "superb", MinYear: 2008, MaxYear: 2024, BodyType: "sedan", Variants: []string{"superb", "superb-combi"}, EngineTypes: []string{"diesel", "petrol"}},
	{Make: "skoda", Model: "kodiaq", MinYear: 2017, MaxYear: 2024, BodyType: "suv", Variants: []string{"kodiaq"}, EngineTypes: []string{"diesel", "petrol"}},
}

// SeedSampleData populates the catalog with the curated starter rows and
// the built-in generation table.
func SeedSampleData(ctx context.Context, st store.Store) error {
	for _, entry := range sampleEntries {
		if err := st.UpsertCatalogEntry(ctx, entry); err != nil {
			return eris.Wrapf(err, "catalog: seed %s %s", entry.Make, entry.Model)
		}
	}
	for key, gens := range builtinGenerations {
		makeName, modelName, _ := cutKey(key)
		for _, g := range gens {
			entry := model.CatalogEntry{
				Make:        makeName,
				Model:       modelName,
				Generation:  g.Code,
				MinYear:     g.MinYear,
				MaxYear:     g.MaxYear,
				BodyType:    g.BodyType,
				EngineTypes: g.EngineTypes,
			}
			if err := st.UpsertCatalogEntry(ctx, entry); err != nil {
				return eris.Wrapf(err, "catalog: seed generation %s %s %s", makeName, modelName, g.Code)
			}
		}
	}
	return nil
}

// LoadSeedFile reads catalog entries from a YAML file.
func LoadSeedFile(path string) ([]model.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read seed file %s", path)
	}
	var doc struct {
		Entries []model.CatalogEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse seed file %s", path)
	}
	for _, e := range doc.Entries {
		if e.MinYear > 0 && e.MaxYear > 0 && e.MinYear > e.MaxYear {
			return nil, eris.Errorf("catalog: invalid year range for %s %s: %d > %d", e.Make, e.Model, e.MinYear, e.MaxYear)
		}
	}
	return doc.Entries, nil
}

// SeedFromFile loads a YAML seed file and upserts its entries.
func SeedFromFile(ctx context.Context, st store.Store, path string) (int, error) {
	entries, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if err := st.UpsertCatalogEntry(ctx, entry); err != nil {
			return 0, eris.Wrapf(err, "catalog: seed %s %s", entry.Make, entry.Model)
		}
	}
	return len(entries), nil
}

func cutKey(key string) (makeName, modelName string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}
