// Package domain defines the value types shared by the termscape engine:
// terms, placement instructions and the batches they travel in. It also acts
// as the validation gate for term configuration.
package domain

import "fmt"

// Category tags a term so renderers can pick a material and GUIs can toggle
// visibility per group.
type Category string

// Vec3 is a 3D vector. Positions are in scene units, rotations in radians.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Term is one configured search term.
type Term struct {
	Text     string   `json:"text" yaml:"text" mapstructure:"text"`
	Label    string   `json:"label" yaml:"label" mapstructure:"label"`
	Category Category `json:"category" yaml:"category" mapstructure:"category"`
	Color    string   `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
}

// DisplayLabel returns the label, falling back to the term text.
func (t Term) DisplayLabel() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Text
}

// Instruction tells a renderer where to instantiate one visual object.
type Instruction struct {
	Term     string   `json:"term"`
	Category Category `json:"category"`
	Position Vec3     `json:"position"`
	Rotation Vec3     `json:"rotation"`
}

// Batch holds every instruction produced by a single (term, token index) match.
type Batch struct {
	Term         string        `json:"term"`
	Label        string        `json:"label"`
	Category     Category      `json:"category"`
	TokenIndex   int           `json:"token_index"`
	N            float64       `json:"n"`
	Instructions []Instruction `json:"instructions"`
}

// TermSet is an ordered, immutable list of terms. Build one with NewTermSet.
type TermSet struct {
	terms []Term
}

// NewTermSet validates terms and freezes them in the given order.
func NewTermSet(terms ...Term) (TermSet, error) {
	if err := ValidateTerms(terms); err != nil {
		return TermSet{}, err
	}
	cp := make([]Term, len(terms))
	copy(cp, terms)
	return TermSet{terms: cp}, nil
}

// MustTermSet is like NewTermSet but panics on invalid input.
func MustTermSet(terms ...Term) TermSet {
	ts, err := NewTermSet(terms...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Terms returns a copy of the terms in configured order.
func (s TermSet) Terms() []Term {
	out := make([]Term, len(s.terms))
	copy(out, s.terms)
	return out
}

// Len returns the number of terms.
func (s TermSet) Len() int { return len(s.terms) }

// Categories returns the distinct categories in first-seen order.
func (s TermSet) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, t := range s.terms {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}
