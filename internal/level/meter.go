// Package level provides the shared peak meter exposed to status pollers.
package level

import (
	"math"
	"sync/atomic"
)

// Meter is an atomic peak-level value in [0, 1]. Go has no atomic float,
// so the float bits are stored in a uint32. Visibility is relaxed: readers
// see the most recent write eventually, with no ordering guarantee relative
// to sample writes. That is enough for a live level display.
type Meter struct {
	bits atomic.Uint32
}

// Set stores v as the current peak, replacing whatever was there.
func (m *Meter) Set(v float32) {
	m.bits.Store(math.Float32bits(v))
}

// Decay multiplies the stored peak by factor, flooring tiny values to zero
// so an idle meter settles instead of decaying forever.
func (m *Meter) Decay(factor float32) {
	cur := m.Value()
	if cur <= 0.001 {
		if cur != 0 {
			m.bits.Store(0)
		}
		return
	}
	m.bits.Store(math.Float32bits(cur * factor))
}

// Value returns the current peak.
func (m *Meter) Value() float32 {
	return math.Float32frombits(m.bits.Load())
}

// Reset clears the meter to zero.
func (m *Meter) Reset() {
	m.bits.Store(math.Float32bits(0))
}
