package encoder

import (
	"errors"
	"testing"
)

// fakeSink records written samples so decorator behavior can be checked.
type fakeSink struct {
	samples   []float32
	finalized bool
}

func (f *fakeSink) WriteSample(s float32) error {
	if f.finalized {
		return ErrFinalized
	}
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeSink) Path() string { return "fake" }

func (f *fakeSink) Finalize() error {
	if f.finalized {
		return ErrFinalized
	}
	f.finalized = true
	return nil
}

func TestSilenceTrimLeadingInteriorTrailing(t *testing.T) {
	sink := &fakeSink{}
	trim := newSilenceTrim(sink)

	input := []float32{0, 0, 0, 0.5, 0, 0, 0.3, 0, 0, 0}
	for _, s := range input {
		if err := trim.WriteSample(s); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := trim.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	expected := []float32{0.5, 0, 0, 0.3}
	if len(sink.samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d (%v)", len(expected), len(sink.samples), sink.samples)
	}
	for i, want := range expected {
		if sink.samples[i] != want {
			t.Fatalf("sample %d: expected %f, got %f", i, want, sink.samples[i])
		}
	}
	if !sink.finalized {
		t.Fatal("inner encoder was not finalized")
	}
}

func TestSilenceTrimAllSilence(t *testing.T) {
	sink := &fakeSink{}
	trim := newSilenceTrim(sink)

	for i := 0; i < 100; i++ {
		if err := trim.WriteSample(0.001); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := trim.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if len(sink.samples) != 0 {
		t.Fatalf("expected no samples written, got %d", len(sink.samples))
	}
}

func TestSilenceTrimNegativeSamplesOpenGate(t *testing.T) {
	sink := &fakeSink{}
	trim := newSilenceTrim(sink)

	// A loud negative sample must open the gate too.
	for _, s := range []float32{0, -0.5, 0.2} {
		if err := trim.WriteSample(s); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := trim.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	expected := []float32{-0.5, 0.2}
	if len(sink.samples) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, sink.samples)
	}
}

func TestSilenceTrimThresholdBoundary(t *testing.T) {
	sink := &fakeSink{}
	trim := newSilenceTrim(sink)

	// Exactly at threshold counts as voiced.
	if err := trim.WriteSample(silenceThreshold); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := trim.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if len(sink.samples) != 1 {
		t.Fatalf("expected threshold sample to be written, got %v", sink.samples)
	}
}

func TestSilenceTrimWriteAfterFinalize(t *testing.T) {
	trim := newSilenceTrim(&fakeSink{})

	if err := trim.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// Every write path must refuse, including samples the trim state
	// machine would otherwise silently discard or buffer.
	for _, s := range []float32{0.001, 0.5, 0} {
		if err := trim.WriteSample(s); !errors.Is(err, ErrFinalized) {
			t.Errorf("WriteSample(%f) after finalize: expected ErrFinalized, got %v", s, err)
		}
	}
}

func TestSilenceTrimDoubleFinalize(t *testing.T) {
	trim := newSilenceTrim(&fakeSink{})

	if err := trim.Finalize(); err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	if err := trim.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized on second finalize, got %v", err)
	}
}
