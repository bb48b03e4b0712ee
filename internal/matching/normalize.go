// Package matching turns display names of items and retailers into the
// canonical tokens used as model keys.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var separatorRe = regexp.MustCompile(`[^0-9a-z]+`)

// NormalizeName lowercases s and collapses every run of characters outside
// [0-9a-z] into a single "-". Diacritics are folded first so "Čokolada"
// becomes "cokolada" instead of "-okolada".
func NormalizeName(s string) string {
	return separatorRe.ReplaceAllString(strings.ToLower(RemoveDiacritics(s)), "-")
}

// NormalizeNames normalizes every name in names.
func NormalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}

// RemoveDiacritics strips combining marks after NFD decomposition.
// đ has no decomposition and is mapped to dj.
func RemoveDiacritics(s string) string {
	replacer := strings.NewReplacer(
		"đ", "dj", "Đ", "Dj",
	)
	s = replacer.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// FirstDuplicate returns the indexes of the first pair of equal names, or
// -1, -1 when all names are distinct.
func FirstDuplicate(names []string) (int, int) {
	seen := make(map[string]int, len(names))
	for i, n := range names {
		if j, ok := seen[n]; ok {
			return j, i
		}
		seen[n] = i
	}
	return -1, -1
}
