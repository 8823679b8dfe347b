package submission

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds the unescape/strip loop in Text.
const maxSanitizePasses = 8

// Sanitizer strips markup from user-supplied text. Stored text is plain
// text; renderers must escape it.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer that removes every HTML element.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text removes tags and returns the unescaped, trimmed text content.
// Entity-encoded markup is stripped after it is decoded, so the result
// contains no elements and Text(Text(s)) == Text(s).
func (s *Sanitizer) Text(in string) string {
	out := in
	for range maxSanitizePasses {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return angleBrackets.Replace(out)
}

// angleBrackets drops what is left of nested encodings Text could not settle.
var angleBrackets = strings.NewReplacer("<", "", ">", "")
