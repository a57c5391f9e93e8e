package scene

import (
	"math"
	"sync"

	"github.com/WessleyAI/termscape/engine/placement"
)

// Pulse frequencies are drawn uniformly from [MinPulse, MaxPulse).
const (
	MinPulse = 0.5
	MaxPulse = 2.0
)

// Animation holds the per-object parameters of the pulse animation.
type Animation struct {
	Frequency float64 `json:"frequency"`
}

// Scale returns the uniform scale at t seconds.
func (a Animation) Scale(t float64) float64 {
	return math.Sin(t * a.Frequency)
}

// ObjectScale is the scale of one object in a frame.
type ObjectScale struct {
	ID    string  `json:"id"`
	Scale float64 `json:"scale"`
}

// Registry maps object IDs to animation parameters. Objects are registered
// when created, so a frame never has to scan the scene for animatable
// objects.
type Registry struct {
	mu    sync.RWMutex
	src   placement.Source
	anims map[string]Animation
	order []string
}

// NewRegistry creates a Registry drawing frequencies from src. A nil src is
// clock-seeded.
func NewRegistry(src placement.Source) *Registry {
	if src == nil {
		src = placement.NewSource(0)
	}
	return &Registry{src: src, anims: make(map[string]Animation)}
}

// Register assigns id a random pulse frequency. Registering an existing id
// keeps its parameters.
func (r *Registry) Register(id string) Animation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.anims[id]; ok {
		return a
	}
	a := Animation{Frequency: MinPulse + r.src.Float64()*(MaxPulse-MinPulse)}
	r.anims[id] = a
	r.order = append(r.order, id)
	return a
}

// Get returns the animation of id.
func (r *Registry) Get(id string) (Animation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.anims[id]
	return a, ok
}

// Remove forgets id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.anims[id]; !ok {
		return
	}
	delete(r.anims, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Reset forgets every object.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anims = make(map[string]Animation)
	r.order = nil
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.anims)
}

// Scales returns the scale of every registered object at t, in
// registration order.
func (r *Registry) Scales(t float64) []ObjectScale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ObjectScale, len(r.order))
	for i, id := range r.order {
		out[i] = ObjectScale{ID: id, Scale: r.anims[id].Scale(t)}
	}
	return out
}
