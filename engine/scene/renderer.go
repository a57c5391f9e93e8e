// Package scene drives the term-to-geometry pipeline and owns everything a
// renderer needs at runtime: placed objects, their animations, GUI state and
// per-frame camera state.
package scene

import (
	"context"
	"fmt"

	"github.com/WessleyAI/termscape/engine/domain"
)

// Renderer consumes placement batches. Implementations instantiate the
// objects, forward them, or record them.
type Renderer interface {
	Render(ctx context.Context, b domain.Batch) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(context.Context, domain.Batch) error

func (f RendererFunc) Render(ctx context.Context, b domain.Batch) error { return f(ctx, b) }

// Tee forwards every batch to each renderer in order, stopping at the first
// error.
func Tee(rs ...Renderer) Renderer {
	return RendererFunc(func(ctx context.Context, b domain.Batch) error {
		for i, r := range rs {
			if err := r.Render(ctx, b); err != nil {
				return fmt.Errorf("tee[%d]: %w", i, err)
			}
		}
		return nil
	})
}

// Recorder keeps every batch it receives. Not safe for concurrent use.
type Recorder struct {
	Batches []domain.Batch
}

func (r *Recorder) Render(_ context.Context, b domain.Batch) error {
	r.Batches = append(r.Batches, b)
	return nil
}

// Instructions flattens the recorded batches in arrival order.
func (r *Recorder) Instructions() []domain.Instruction {
	var out []domain.Instruction
	for _, b := range r.Batches {
		out = append(out, b.Instructions...)
	}
	return out
}
