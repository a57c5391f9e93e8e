package domain

import (
	"regexp"
	"strings"
)

// termRe matches a single token as the tokenizer would emit it.
var termRe = regexp.MustCompile(`^[\w']+$`)

// NormalizeTerm folds a configured term the same way the tokenizer folds the
// corpus, so "Cheshire." and "cheshire" both search for "cheshire".
func NormalizeTerm(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateTerm checks that a term can ever match a token.
func ValidateTerm(t Term) error {
	if t.Text == "" {
		return NewValidationError("text", t.Text, ErrInvalidTerm)
	}
	if t.Text != strings.ToLower(t.Text) {
		return NewValidationError("text", t.Text, ErrInvalidTerm)
	}
	// Multi-word terms like "white rabbit" are split by the tokenizer and
	// can never equal a single token.
	if !termRe.MatchString(t.Text) {
		return NewValidationError("text", t.Text, ErrInvalidTerm)
	}
	if t.Category == "" {
		return NewValidationError("category", string(t.Category), ErrInvalidTerm)
	}
	return nil
}

// ValidateTerms validates each term and rejects duplicates.
func ValidateTerms(terms []Term) error {
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if err := ValidateTerm(t); err != nil {
			return err
		}
		if seen[t.Text] {
			return NewValidationError("text", t.Text, ErrDuplicateTerm)
		}
		seen[t.Text] = true
	}
	return nil
}
