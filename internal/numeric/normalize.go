// Package numeric is the central cleaning primitive: it turns noisy text
// fragments from any document source into integer prices. Syntactic
// cleaning only; semantic plausibility checks live in internal/rules and
// are applied by callers.
package numeric

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// cleaner drops the whitespace and separator noise seen in price cells:
// regular/non-breaking/thin spaces, dashes used as fillers, and unifies
// the decimal comma.
var cleaner = strings.NewReplacer(
	" ", "",
	" ", "",
	" ", "",
	"–", "",
	",", ".",
)

// Normalize extracts the first integer run from a raw text fragment.
// Decimal tails ("6 800,00") are truncated, not rounded. A fragment with
// no digits yields the Unknown sentinel, since absence of a number is a normal
// outcome here, never an error.
func Normalize(raw string) (int, bool) {
	cleaned := cleaner.Replace(strings.TrimSpace(raw))
	m := numberRe.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	if i := strings.IndexByte(m, '.'); i >= 0 {
		m = m[:i]
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DigitsOnly strips every non-digit rune. Used where a match may carry
// glued punctuation from PDF text streams.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
