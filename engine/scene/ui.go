package scene

import (
	"maps"
	"sync"

	"github.com/WessleyAI/termscape/engine/domain"
)

// UISnapshot is a read-only copy of the GUI state for one frame.
type UISnapshot struct {
	Visibility     map[domain.Category]bool `json:"visibility"`
	RotateCamera   bool                     `json:"rotate_camera"`
	AnimateObjects bool                     `json:"animate_objects"`
}

// Visible reports whether category c is shown. Unknown categories are
// visible.
func (s UISnapshot) Visible(c domain.Category) bool {
	v, ok := s.Visibility[c]
	return !ok || v
}

// UIPatch updates a subset of the GUI state. Nil fields are left alone.
type UIPatch struct {
	Visibility     map[domain.Category]bool `json:"visibility,omitempty"`
	RotateCamera   *bool                    `json:"rotate_camera,omitempty"`
	AnimateObjects *bool                    `json:"animate_objects,omitempty"`
}

// UIState is the mutable GUI state. The GUI writes it; the engine only reads
// snapshots.
type UIState struct {
	mu      sync.RWMutex
	visible map[domain.Category]bool
	rotate  bool
	animate bool
}

// NewUIState creates a state with every category visible.
func NewUIState(categories ...domain.Category) *UIState {
	v := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		v[c] = true
	}
	return &UIState{visible: v}
}

// Snapshot copies the current state.
func (u *UIState) Snapshot() UISnapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return UISnapshot{
		Visibility:     maps.Clone(u.visible),
		RotateCamera:   u.rotate,
		AnimateObjects: u.animate,
	}
}

// Apply merges p into the state and returns the resulting snapshot.
func (u *UIState) Apply(p UIPatch) UISnapshot {
	u.mu.Lock()
	for c, v := range p.Visibility {
		u.visible[c] = v
	}
	if p.RotateCamera != nil {
		u.rotate = *p.RotateCamera
	}
	if p.AnimateObjects != nil {
		u.animate = *p.AnimateObjects
	}
	u.mu.Unlock()
	return u.Snapshot()
}
