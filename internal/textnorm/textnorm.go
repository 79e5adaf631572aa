// Package textnorm cleans free text before it is embedded or used as a cache key.
//
// There is one normalization function. Call sites pick a Policy: CacheKey for
// the embedding cache, Matching for query and description preprocessing.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy selects the optional normalization steps.
type Policy struct {
	// DropShortTokens removes word tokens of one or two characters.
	DropShortTokens bool
	// Lowercase folds the result to lower case.
	Lowercase bool
}

// Named policies
var (
	// CacheKey is used to derive embedding cache keys.
	CacheKey = Policy{}

	// Matching is used on user queries and listing descriptions.
	Matching = Policy{DropShortTokens: true, Lowercase: true}
)

// Whitespace covers ASCII spaces, vertical tab, NEL and the Unicode
// separator category so that non-breaking and em spaces collapse instead of
// being dropped as non-ASCII.
const whitespaceClass = `\s\v\p{Z}\x{85}`

var (
	emailPattern      = regexp.MustCompile(`[^` + whitespaceClass + `]+@[^` + whitespaceClass + `]+`)
	whitespacePattern = regexp.MustCompile(`[` + whitespaceClass + `]+`)
	nonASCIIPattern   = regexp.MustCompile(`[^\x00-\x7F]+`)
	shortTokenPattern = regexp.MustCompile(`\b\w{1,2}\b`)
)

// Normalize applies the cleaning steps selected by p. It never fails and
// Normalize(Normalize(s, p), p) == Normalize(s, p).
func Normalize(raw string, p Policy) string {
	text := emailPattern.ReplaceAllString(raw, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = nonASCIIPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "*", "")
	if p.DropShortTokens {
		text = shortTokenPattern.ReplaceAllString(text, "")
	}
	// Removals above can leave doubled spaces behind.
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if p.Lowercase {
		text = strings.ToLower(text)
	}
	return text
}

// NormalizeValue coerces v to a string before normalizing. A nil value
// normalizes to the empty string.
func NormalizeValue(v any, p Policy) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return Normalize(val, p)
	case fmt.Stringer:
		return Normalize(val.String(), p)
	default:
		return Normalize(fmt.Sprint(val), p)
	}
}
