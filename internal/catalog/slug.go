package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the deterministic unique slug for a movie from its title
// and the listing source's native id. The same title/id pair always yields
// the same slug, which is what makes the reconciler's upserts idempotent
// across runs.
func Slugify(title, nativeID string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(decomposed) + len(nativeID) + 1)
	for _, r := range decomposed {
		// Drop combining marks so accented characters fold to ASCII.
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String()) + "_" + nativeID
	s = slugSeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
