// Package naming collapses the surface forms of an ingredient name onto a
// single canonical key used by the ingredient library.
package naming

import (
	"strings"
	"unicode"
)

// AliasTable maps normalized surface forms to their canonical name. The table
// is domain data loaded from configuration, not code.
type AliasTable map[string]string

// DefaultAliases returns the built-in alias table, used when configuration
// does not supply one. Keys and values must already be in normalized form.
func DefaultAliases() AliasTable {
	return AliasTable{
		"idly":      "idli",
		"idlis":     "idli",
		"curd":      "yoghurt",
		"yogurt":    "yoghurt",
		"dahi":      "yoghurt",
		"brinjal":   "eggplant",
		"aubergine": "eggplant",
		"capsicum":  "bell pepper",
		"coriander": "cilantro",
		"dhania":    "cilantro",
		"lady finger": "okra",
		"bhindi":    "okra",
		"chapathi":  "chapati",
		"roti":      "chapati",
		"paneer":    "cottage cheese",
		"maida":     "all purpose flour",
		"atta":      "whole wheat flour",
		"jeera":     "cumin",
		"haldi":     "turmeric",
	}
}

// pluralSuffixes are tried longest-first so "berries" is stemmed before "s".
var pluralSuffixes = []string{"ies", "es", "s"}

// Normalizer is the deterministic normalization pipeline. It is pure,
// idempotent, and safe for concurrent use.
type Normalizer struct {
	aliases AliasTable
}

// NewNormalizer creates a normalizer over the given alias table. A nil table
// falls back to the built-in defaults.
func NewNormalizer(aliases AliasTable) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize canonicalizes an ingredient name: lowercase, strip punctuation,
// collapse whitespace, resolve aliases, and as a last resort re-check the
// alias table on the singular stem.
func (n *Normalizer) Normalize(name string) string {
	cleaned := foldToAlnum(name)
	if cleaned == "" {
		return ""
	}

	if canonical, ok := n.aliases[cleaned]; ok {
		return canonical
	}

	// A plural that isn't in the table may still alias through its stem:
	// "idlys" -> "idly" -> "idli".
	for _, suffix := range pluralSuffixes {
		stem, ok := strings.CutSuffix(cleaned, suffix)
		if !ok || len(stem) < 3 {
			continue
		}
		if canonical, ok := n.aliases[stem]; ok {
			return canonical
		}
	}

	return cleaned
}

// foldToAlnum lowercases, replaces every non-alphanumeric rune with a space,
// and collapses whitespace runs.
func foldToAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}
