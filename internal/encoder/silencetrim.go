package encoder

// silenceThreshold is the normalized amplitude below which a sample counts
// as silence. Hard-coded: quiet speech sits well above this and exposing it
// has not been needed.
const silenceThreshold = 0.005

// silenceTrim wraps another encoder and drops leading and trailing silence
// while preserving silence between voiced segments.
//
// Two states. Gate closed (initial): silent samples are discarded outright;
// the first loud sample opens the gate and is written. Gate open: loud
// samples are written immediately; silent samples are held back because
// they may be trailing silence. A loud sample arriving after held silence
// flushes the whole held run first, so interior pauses survive intact.
// Whatever is still held at finalize is trailing silence and is dropped.
type silenceTrim struct {
	inner     Encoder
	open      bool
	pending   []float32
	finalized bool
}

func newSilenceTrim(inner Encoder) *silenceTrim {
	return &silenceTrim{inner: inner}
}

func (t *silenceTrim) WriteSample(sample float32) error {
	if t.finalized {
		return ErrFinalized
	}
	loud := sample >= silenceThreshold || sample <= -silenceThreshold

	if !t.open {
		if !loud {
			return nil
		}
		t.open = true
		return t.inner.WriteSample(sample)
	}

	if !loud {
		t.pending = append(t.pending, sample)
		return nil
	}

	// Voiced audio after buffered silence: that silence was interior,
	// not trailing, so write it through before the new sample.
	for _, s := range t.pending {
		if err := t.inner.WriteSample(s); err != nil {
			return err
		}
	}
	t.pending = t.pending[:0]
	return t.inner.WriteSample(sample)
}

func (t *silenceTrim) Path() string {
	return t.inner.Path()
}

func (t *silenceTrim) Finalize() error {
	if t.finalized {
		return ErrFinalized
	}
	t.finalized = true
	// Held samples are trailing silence; drop them.
	t.pending = nil
	return t.inner.Finalize()
}
