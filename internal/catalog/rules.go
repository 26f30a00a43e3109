package catalog

import (
	"regexp"
	"strings"
)

// CanonicalRule rewrites a free-text model name into the canonical query
// token a source expects as a path segment. Rules are tried in order;
// the first matching pattern wins.
type CanonicalRule struct {
	Pattern *regexp.Regexp
	Replace string
}

// LooseRule guards the loose match tier for one model line of a brand.
// When the requested (normalized) model matches Model, a listing may only
// loose-match if it contains none of the Deny tokens and, when Allow is
// non-empty, at least one Allow token.
type LooseRule struct {
	Model *regexp.Regexp
	Allow []string
	Deny  []string
}

// BrandRule bundles the per-brand canonicalization and loose-tier rules.
type BrandRule struct {
	Canonical []CanonicalRule
	Loose     []LooseRule
}

// brandRules is the declarative rule table keyed by make. It replaces the
// scattered per-brand branching the match and catalog code would otherwise
// need: numeric-prefixed BMW models map to a series token, Audi letter+digit
// models map to the letter+digit pair, single-letter Mercedes classes map to
// the leading letter. The deny sets keep sibling model lines of the same
// make from cross-contaminating loose matches.
var brandRules = map[string]BrandRule{
	"bmw": {
		Canonical: []CanonicalRule{
			{Pattern: regexp.MustCompile(`^x(\d)`), Replace: "x$1"},
			{Pattern: regexp.MustCompile(`^(\d)`), Replace: "seria-$1"},
		},
		Loose: []LooseRule{
			{Model: regexp.MustCompile(`^seria-\d`), Deny: []string{"x1", "x2", "x3", "x4", "x5", "x6", "x7", "xm"}},
			{Model: regexp.MustCompile(`^x\d`), Deny: []string{"seria"}},
		},
	},
	"audi": {
		Canonical: []CanonicalRule{
			{Pattern: regexp.MustCompile(`^([aq])(\d+)`), Replace: "$1$2"},
		},
		Loose: []LooseRule{
			{Model: regexp.MustCompile(`^a\d`), Deny: []string{"q2", "q3", "q4", "q5", "q7", "q8"}},
			{Model: regexp.MustCompile(`^q\d`), Deny: []string{"a1", "a3", "a4", "a5", "a6", "a7", "a8"}},
		},
	},
	"mercedes": {
		Canonical: []CanonicalRule{
			{Pattern: regexp.MustCompile(`^([a-z])`), Replace: "$1"},
		},
		Loose: []LooseRule{
			{Model: regexp.MustCompile(`^[a-z]$`), Deny: []string{"gla", "glb", "glc", "gle", "gls"}},
		},
	},
	"volkswagen": {
		Loose: []LooseRule{
			{Model: regexp.MustCompile(`^golf`), Deny: []string{"tiguan", "touareg", "troc", "taigo"}},
		},
	},
}

// makeAliases folds alternate spellings onto the rule-table key.
var makeAliases = map[string]string{
	"mercedes-benz": "mercedes",
	"mercedesbenz":  "mercedes",
	"vw":            "volkswagen",
}

func ruleKey(makeName string) string {
	k := strings.ToLower(strings.TrimSpace(makeName))
	if alias, ok := makeAliases[k]; ok {
		return alias
	}
	return k
}

// NormalizeQueryToken canonicalizes a model name for the given make into
// the token passed to adapters that need a path segment rather than free
// text. Unknown makes and non-matching models pass through lowercased with
// spaces collapsed to dashes.
func NormalizeQueryToken(makeName, modelName string) string {
	m := strings.ToLower(strings.TrimSpace(modelName))

	if rule, ok := brandRules[ruleKey(makeName)]; ok {
		for _, c := range rule.Canonical {
			if c.Pattern.MatchString(m) {
				loc := c.Pattern.FindStringSubmatchIndex(m)
				return string(c.Pattern.ExpandString(nil, c.Replace, m, loc))
			}
		}
	}

	return strings.ReplaceAll(m, " ", "-")
}

// acronymBrands render fully uppercased instead of title-cased.
var acronymBrands = map[string]bool{
	"bmw": true,
	"vw":  true,
}

// DisplayBrand formats a stored make for UI listings: "bmw" -> "BMW",
// "alfa-romeo" -> "Alfa Romeo".
func DisplayBrand(makeName string) string {
	m := strings.ToLower(strings.TrimSpace(makeName))
	if acronymBrands[m] {
		return strings.ToUpper(m)
	}
	return titleWords(strings.ReplaceAll(m, "-", " "))
}

// DisplayModel formats a stored model token: "seria-3" -> "Seria 3",
// "320d" stays "320d", "x5" -> "X5".
func DisplayModel(modelName string) string {
	m := strings.ToLower(strings.TrimSpace(modelName))
	if len(m) <= 2 {
		return strings.ToUpper(m)
	}
	if m[0] >= '0' && m[0] <= '9' {
		return m
	}
	return titleWords(strings.ReplaceAll(m, "-", " "))
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// LooseRuleFor returns the allow/deny token sets guarding loose-tier
// matches for the given make and normalized model. Both are nil when no
// rule applies.
func LooseRuleFor(makeName, normalizedModel string) (allow, deny []string) {
	rule, ok := brandRules[ruleKey(makeName)]
	if !ok {
		return nil, nil
	}
	for _, l := range rule.Loose {
		if l.Model.MatchString(normalizedModel) {
			return l.Allow, l.Deny
		}
	}
	return nil, nil
}
