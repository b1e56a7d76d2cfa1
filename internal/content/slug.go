// Package content holds the pure derived-field functions used by the
// resource services before an entity is persisted: slugs, word counts,
// read-time estimates, the event-registration dedup key, and the
// markdown/sanitizing helpers.
//
// Nothing in this package fails. Every function is total and deterministic,
// so services can call them unconditionally and tests can pin exact output.
package content

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength is the longest slug Slugify produces.
const MaxSlugLength = 160

var (
	// slugStrip matches everything outside the slug alphabet (whitespace and
	// hyphens survive this pass; they are folded next)
	slugStrip = regexp.MustCompile(`[^a-z0-9\s\v\x{85}\p{Z}-]+`)
	// slugSpace matches whitespace runs: the same set unicode.IsSpace (and so
	// WordCount) splits on
	slugSpace = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)

	// foldAccents decomposes and drops combining marks: "café" -> "cafe".
	foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify converts a title to a URL-safe slug.
//
//	Slugify("Hello, World!  Foo--Bar") == "hello-world-foo-bar"
//
// Accents are folded first so "Café Menu" becomes "cafe-menu" instead of
// "caf-menu". Output contains only [a-z0-9-], never starts or ends with a
// hyphen, never has "--", and is at most MaxSlugLength bytes, which makes
// Slugify idempotent.
func Slugify(title string) string {
	s, _, err := transform.String(foldAccents, title)
	if err != nil {
		s = title
	}

	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}
