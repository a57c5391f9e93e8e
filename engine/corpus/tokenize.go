// Package corpus retrieves source texts and turns them into token sequences.
package corpus

import (
	"regexp"
	"strings"
)

// separatorRe matches runs of characters that are neither ASCII word
// characters nor apostrophes.
var separatorRe = regexp.MustCompile(`[^\w']+`)

// Tokenize strips periods, lowercases and splits raw text into words.
// Empty segments from leading or trailing separators are dropped, so empty
// input yields an empty slice.
func Tokenize(raw string) []string {
	text := strings.ToLower(strings.ReplaceAll(raw, ".", ""))
	parts := separatorRe.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
