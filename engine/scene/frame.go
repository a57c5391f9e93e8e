package scene

import (
	"context"
	"math"
	"time"

	"github.com/WessleyAI/termscape/engine/domain"
)

// Camera orbit parameters.
const (
	OrbitRadius = 16
	OrbitSpeed  = 0.2
)

// RestCamera is the camera position when the orbit is off.
var RestCamera = domain.Vec3{X: 0, Y: 0, Z: 20}

// DefaultFrameInterval is roughly 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// Frame is the per-tick state a renderer applies on top of the placed
// objects.
type Frame struct {
	Time       float64                  `json:"t"`
	Camera     domain.Vec3              `json:"camera"`
	Visibility map[domain.Category]bool `json:"visibility"`
	Scales     []ObjectScale            `json:"scales,omitempty"`
}

// CameraAt returns the camera position at t seconds.
func CameraAt(t float64, snap UISnapshot) domain.Vec3 {
	if !snap.RotateCamera {
		return RestCamera
	}
	return domain.Vec3{
		X: math.Sin(t*OrbitSpeed) * OrbitRadius,
		Y: RestCamera.Y,
		Z: math.Cos(t*OrbitSpeed) * OrbitRadius,
	}
}

// BuildFrame assembles the frame at t. Scales are only included while the
// pulse animation is on.
func BuildFrame(t float64, snap UISnapshot, reg *Registry) Frame {
	f := Frame{
		Time:       t,
		Camera:     CameraAt(t, snap),
		Visibility: snap.Visibility,
	}
	if snap.AnimateObjects && reg != nil {
		f.Scales = reg.Scales(t)
	}
	return f
}

// Animator runs the animation loop.
type Animator struct {
	UI       *UIState
	Registry *Registry
	Interval time.Duration
	now      func() time.Time
}

// NewAnimator creates an Animator ticking at interval (DefaultFrameInterval
// when <= 0).
func NewAnimator(ui *UIState, reg *Registry, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Animator{UI: ui, Registry: reg, Interval: interval, now: time.Now}
}

// Run emits a frame every interval until ctx is done. t counts seconds
// since Run started.
func (a *Animator) Run(ctx context.Context, emit func(Frame)) error {
	start := a.now()
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t := a.now().Sub(start).Seconds()
			emit(BuildFrame(t, a.UI.Snapshot(), a.Registry))
		}
	}
}
