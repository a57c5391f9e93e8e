package scene

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/WessleyAI/termscape/engine/domain"
)

// Object is a placed instruction with a stable identity.
type Object struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	TokenIndex int       `json:"token_index"`
	Animation  Animation `json:"animation"`
	domain.Instruction
}

// Scene stores placed objects in arrival order. It implements Renderer and
// registers every new object with its animation Registry.
type Scene struct {
	mu       sync.RWMutex
	objects  []Object
	registry *Registry
	newID    func() string
	onAdd    func(context.Context, domain.Batch)
}

// NewScene creates a Scene backed by registry. A nil registry gets a
// clock-seeded one.
func NewScene(registry *Registry) *Scene {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	return &Scene{
		registry: registry,
		newID:    func() string { return uuid.NewString() },
	}
}

// OnAdd sets a hook called after each accepted batch, outside the lock.
func (s *Scene) OnAdd(f func(context.Context, domain.Batch)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdd = f
}

// Registry returns the animation registry.
func (s *Scene) Registry() *Registry { return s.registry }

// Render adds every instruction in b as a new object.
func (s *Scene) Render(ctx context.Context, b domain.Batch) error {
	s.mu.Lock()
	for _, in := range b.Instructions {
		id := s.newID()
		s.objects = append(s.objects, Object{
			ID:          id,
			Label:       b.Label,
			TokenIndex:  b.TokenIndex,
			Animation:   s.registry.Register(id),
			Instruction: in,
		})
	}
	onAdd := s.onAdd
	s.mu.Unlock()
	if onAdd != nil {
		onAdd(ctx, b)
	}
	return nil
}

// Objects returns a copy of all objects in arrival order.
func (s *Scene) Objects() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// ByCategory returns the objects tagged with c, in arrival order.
func (s *Scene) ByCategory(c domain.Category) []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Object
	for _, o := range s.objects {
		if o.Category == c {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Reset removes every object and its animation.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.registry.Reset()
}
