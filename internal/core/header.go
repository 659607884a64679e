package core

// header.go canonicalizes column headers.
//
// A canonical header keeps only word characters (letters, digits, marks and
// underscores) and whitespace, lowercases the result and joins words with a
// single underscore:
//
//	"Order ID#!"      -> "order_id"
//	"  Ship   Time "  -> "ship_time"
//
// Underscores survive so that normalizing an already canonical header is a no-op.

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// NormalizeHeader maps arbitrary header text to a canonical snake_case identifier.
// A header made only of punctuation normalizes to the empty string.
func NormalizeHeader(header string) string {
	var b strings.Builder
	b.Grow(len(header))
	for _, r := range header {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(lowerCaser.String(b.String()))
	return strings.Join(words, "_")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// NormalizeHeaders applies NormalizeHeader to every header when enabled, then
// checks that the resulting headers are unique. Headers are never deduplicated
// automatically: a collision, including two headers that both normalize to the
// empty string, is returned as a KindHeaderCollision error.
func NormalizeHeaders(headers []string, enabled bool) ([]string, error) {
	out := make([]string, len(headers))
	for i, h := range headers {
		if enabled {
			out[i] = NormalizeHeader(h)
		} else {
			out[i] = h
		}
	}

	seen := make(map[string]int, len(out))
	for i, h := range out {
		if first, ok := seen[h]; ok {
			return nil, &PipelineError{
				Kind: KindHeaderCollision,
				Err: fmt.Errorf("columns %d (%q) and %d (%q) both become %q",
					first+1, headers[first], i+1, headers[i], h),
			}
		}
		seen[h] = i
	}

	return out, nil
}
