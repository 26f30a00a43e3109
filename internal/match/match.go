// Package match decides which raw listings answer a search query.
package match

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/RobertM05/car-sniper/internal/catalog"
	"github.com/RobertM05/car-sniper/internal/model"
)

// blockTokens reject parts-and-salvage ads outright. Romanian sellers
// list dismantled cars under the same categories as whole ones.
var blockTokens = map[string]bool{
	"dezmembrez":  true,
	"dezmembrari": true,
	"dezmembrare": true,
	"piese":       true,
	"accesorii":   true,
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases a string and strips combining marks, so "Škoda" and
// "mașină" compare as "skoda" and "masina".
func Fold(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokens splits a title into folded lowercase alphanumeric runs.
func Tokens(s string) []string {
	folded := Fold(s)
	var out []string
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// ParsePrice extracts a numeric EUR price from currency-tagged ad text.
// All non-digit characters are stripped, so "18 500 €" and "92.000 lei"
// both parse. Lei amounts are converted at the fixed ronPerEUR rate.
// Empty and zero prices are rejected: a listing without a believable
// price cannot be ranked or bounded.
func ParsePrice(raw string, ronPerEUR float64) (int, bool) {
	lower := Fold(raw)

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(b.String())
	if err != nil || v == 0 {
		return 0, false
	}

	if strings.Contains(lower, "lei") || strings.Contains(lower, "ron") {
		if ronPerEUR <= 0 {
			return 0, false
		}
		v = int(float64(v) / ronPerEUR)
		if v == 0 {
			return 0, false
		}
	}
	return v, true
}

// Filter applies the two-tier title match and the numeric bounds of a
// query to raw listings.
type Filter struct {
	ronPerEUR float64
}

// NewFilter creates a Filter converting lei prices at the given rate.
func NewFilter(ronPerEUR float64) *Filter {
	return &Filter{ronPerEUR: ronPerEUR}
}

// Apply returns the listings that answer the query, as canonical
// listings with resolved EUR prices.
//
// Two tiers are evaluated. Strict requires every model token to appear
// in the title (exactly or as a token prefix/substring). Loose requires
// only the make, guarded by per-brand allow/deny token sets so that a
// loose "seria-3" search does not drag in X-line SUVs. Strict results
// win when any exist; loose results are used only as a fallback, and
// only when the query actually named a model.
func (f *Filter) Apply(q model.SearchQuery, raw []model.RawListing) []model.CanonicalListing {
	makeTokens := Tokens(q.Make)
	modelTokens := Tokens(q.Model)
	normModel := catalog.NormalizeQueryToken(q.Make, q.Model)
	allow, deny := catalog.LooseRuleFor(q.Make, normModel)

	var strict, loose []model.CanonicalListing
	for _, rl := range raw {
		titleTokens := Tokens(rl.Title)
		if containsAny(titleTokens, blockTokens) {
			continue
		}

		price, ok := ParsePrice(rl.Price, f.ronPerEUR)
		if !ok {
			continue
		}
		if !withinBounds(q, rl, price) {
			continue
		}

		if !containsAll(titleTokens, makeTokens) {
			continue
		}

		cl := model.CanonicalListing{
			Title:  rl.Title,
			Price:  price,
			Link:   rl.Link,
			Image:  rl.Image,
			Year:   rl.Year,
			KM:     rl.KM,
			CC:     rl.CC,
			HP:     rl.HP,
			Source: rl.Source,
			Repair: model.RepairNone,
		}

		if len(modelTokens) > 0 && modelMatches(titleTokens, modelTokens) {
			strict = append(strict, cl)
			continue
		}
		if looseMatches(titleTokens, allow, deny) {
			loose = append(loose, cl)
		}
	}

	if len(strict) > 0 {
		return strict
	}
	if len(modelTokens) == 0 {
		// Without a model there is no strict tier; make-only matches
		// came through the loose path.
		return loose
	}
	return loose
}

// modelMatches requires every model token to occur in the title, either
// as an exact token or embedded in one ("320d" matches "320").
func modelMatches(titleTokens, modelTokens []string) bool {
	for _, mt := range modelTokens {
		found := false
		for _, tt := range titleTokens {
			if tt == mt || strings.Contains(tt, mt) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func looseMatches(titleTokens []string, allow, deny []string) bool {
	for _, d := range deny {
		for _, tt := range titleTokens {
			if tt == d {
				return false
			}
		}
	}
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		for _, tt := range titleTokens {
			if tt == a {
				return true
			}
		}
	}
	return false
}

// withinBounds checks the numeric constraints. A zero listing field is
// treated as unknown and never disqualifies on year, km, cc or hp; the
// price is always known at this point and is bounded unconditionally.
func withinBounds(q model.SearchQuery, rl model.RawListing, price int) bool {
	if q.MinPrice > 0 && price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && price > q.MaxPrice {
		return false
	}
	if q.MinYear > 0 && rl.Year > 0 && rl.Year < q.MinYear {
		return false
	}
	if q.MaxYear > 0 && rl.Year > 0 && rl.Year > q.MaxYear {
		return false
	}
	if q.MaxKM > 0 && rl.KM > 0 && rl.KM > q.MaxKM {
		return false
	}
	if q.MinCC > 0 && rl.CC > 0 && rl.CC < q.MinCC {
		return false
	}
	if q.MinHP > 0 && rl.HP > 0 && rl.HP < q.MinHP {
		return false
	}
	return true
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsAny(tokens []string, set map[string]bool) bool {
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}
