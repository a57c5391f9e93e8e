package scene

import (
	"math"
	"testing"

	"github.com/WessleyAI/termscape/engine/placement"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(placement.NewSequence(0.25, 0.75))
	a := r.Register("a")
	b := r.Register("b")
	if a.Frequency != MinPulse+0.25*(MaxPulse-MinPulse) {
		t.Fatalf("unexpected frequency %v", a.Frequency)
	}
	if b.Frequency < MinPulse || b.Frequency >= MaxPulse {
		t.Fatalf("frequency %v out of range", b.Frequency)
	}
	if again := r.Register("a"); again != a {
		t.Fatal("re-registering should keep parameters")
	}
	if got, ok := r.Get("b"); !ok || got != b {
		t.Fatal("Get should return registered animation")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2, got %d", r.Len())
	}
}

func TestRegistryScales(t *testing.T) {
	r := NewRegistry(placement.NewSequence(0, 0.5))
	r.Register("a")
	r.Register("b")
	const tm = 1.7
	scales := r.Scales(tm)
	if len(scales) != 2 || scales[0].ID != "a" || scales[1].ID != "b" {
		t.Fatalf("unexpected scales %+v", scales)
	}
	fa, _ := r.Get("a")
	if scales[0].Scale != math.Sin(tm*fa.Frequency) {
		t.Fatalf("scale %v != sin(t*f)", scales[0].Scale)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("a")
	r.Register("b")
	r.Register("c")
	r.Remove("b")
	r.Remove("missing")
	scales := r.Scales(0)
	if len(scales) != 2 || scales[0].ID != "a" || scales[1].ID != "c" {
		t.Fatalf("unexpected scales after remove %+v", scales)
	}
	if _, ok := r.Get("b"); ok {
		t.Fatal("b should be gone")
	}
}
