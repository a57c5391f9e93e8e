package placement

import (
	"math"

	"github.com/WessleyAI/termscape/engine/domain"
)

const (
	// DefaultRepeat is the number of instructions per match.
	DefaultRepeat = 5
	// Spread is the side length of the square the X/Z coordinates are
	// scattered over, centered on the origin.
	Spread = 10
	// YOffset shifts n down so the corpus spans y in [-10, 10).
	YOffset = 10
)

// Mapper expands normalized positions into placement instructions.
type Mapper struct {
	src Source
}

// NewMapper creates a Mapper drawing from src. A nil src is clock-seeded.
func NewMapper(src Source) *Mapper {
	if src == nil {
		src = NewSource(0)
	}
	return &Mapper{src: src}
}

// Expand returns repeat instructions at height n-10, scattered uniformly in
// x and z over [-5, 5] with uniformly random rotations in [0, 2π).
// repeat <= 0 uses DefaultRepeat. Term and category are left for the caller.
func (m *Mapper) Expand(n float64, repeat int) []domain.Instruction {
	if repeat <= 0 {
		repeat = DefaultRepeat
	}
	out := make([]domain.Instruction, repeat)
	for i := range out {
		out[i] = domain.Instruction{
			Position: domain.Vec3{
				X: (m.src.Float64() - 0.5) * Spread,
				Y: n - YOffset,
				Z: (m.src.Float64() - 0.5) * Spread,
			},
			Rotation: domain.Vec3{
				X: m.src.Float64() * 2 * math.Pi,
				Y: m.src.Float64() * 2 * math.Pi,
				Z: m.src.Float64() * 2 * math.Pi,
			},
		}
	}
	return out
}

// ExpandTerm is Expand with every instruction tagged by term.
func (m *Mapper) ExpandTerm(term domain.Term, n float64, repeat int) []domain.Instruction {
	out := m.Expand(n, repeat)
	for i := range out {
		out[i].Term = term.Text
		out[i].Category = term.Category
	}
	return out
}
