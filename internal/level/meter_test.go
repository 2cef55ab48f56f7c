package level

import "testing"

func TestMeterDecay(t *testing.T) {
	var m Meter
	m.Set(0.9)

	m.Decay(0.95)
	// Computed the same way Decay does, so float32 rounding matches.
	want := float32(0.9) * float32(0.95)
	if got := m.Value(); got != want {
		t.Fatalf("expected %f after one decay, got %f", want, got)
	}

	// Repeated decay settles to (near) zero rather than shrinking forever.
	for i := 0; i < 1000; i++ {
		m.Decay(0.95)
	}
	if got := m.Value(); got > 0.001 {
		t.Fatalf("expected meter to settle near zero, got %f", got)
	}
}

func TestMeterSetAndReset(t *testing.T) {
	var m Meter

	m.Set(0.5)
	if got := m.Value(); got != 0.5 {
		t.Fatalf("expected 0.5, got %f", got)
	}

	// Set is last-write-wins, not lift-to-max.
	m.Set(0.2)
	if got := m.Value(); got != 0.2 {
		t.Fatalf("expected 0.2 after Set, got %f", got)
	}

	m.Reset()
	if got := m.Value(); got != 0 {
		t.Fatalf("expected 0 after Reset, got %f", got)
	}
}
