package content

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// dashVariants are folded to ASCII '-' by EventKey: hyphen-minus, the
// U+2010..U+2015 hyphen/dash block, minus sign, small and fullwidth
// hyphen-minus.
var dashVariants = strings.NewReplacer(
	"\u2010", "-", // hyphen
	"\u2011", "-", // non-breaking hyphen
	"\u2012", "-", // figure dash
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2015", "-", // horizontal bar
	"\u2212", "-", // minus sign
	"\ufe58", "-", // small em dash
	"\ufe63", "-", // small hyphen-minus
	"\uff0d", "-", // fullwidth hyphen-minus
)

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// EventKey normalizes an event title into the key used to deduplicate
// registrations. "AI Summit — 2025 " and "ai summit - 2025" share a key.
func EventKey(title string) string {
	k := strings.ToLower(title)
	k = norm.NFD.String(k)
	k = dashVariants.Replace(k)
	k = multipleHyphens.ReplaceAllString(k, "-")
	k = whitespaceRun.ReplaceAllString(k, " ")
	return strings.TrimSpace(k)
}

// NormalizeEmail is the email half of the registration dedup pair.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
