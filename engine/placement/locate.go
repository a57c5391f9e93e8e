// Package placement maps term occurrences in a token sequence to 3D
// placement instructions.
package placement

import "github.com/WessleyAI/termscape/engine/domain"

// Normalize converts token index i of total tokens to the vertical
// coordinate n. n grows with i and stays below 20 for i < total.
func Normalize(i, total int) float64 {
	return (100 / float64(total)) * float64(i) * 0.2
}

// LocateIndices returns every index where tokens[i] == term, in order.
func LocateIndices(tokens []string, term string) []int {
	var out []int
	for i, tok := range tokens {
		if tok == term {
			out = append(out, i)
		}
	}
	return out
}

// Locate returns the normalized position of every occurrence of term.
// An empty token sequence fails with domain.ErrEmptyCorpus; a term with no
// occurrences yields an empty slice.
func Locate(tokens []string, term string) ([]float64, error) {
	if len(tokens) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	idx := LocateIndices(tokens, term)
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = Normalize(i, len(tokens))
	}
	return out, nil
}
