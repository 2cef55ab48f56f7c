package encoder

import (
	"bytes"
	"fmt"
	"os"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// mp3Encoder accumulates all samples in memory and runs the perceptual
// encoder once at finalize. Shine encodes at its fixed default bitrate
// (128 kbps), which is plenty for voice. Memory cost scales with duration.
type mp3Encoder struct {
	path       string
	channels   int
	sampleRate int
	samples    []float32
	finalized  bool
}

func newMP3Encoder(path string, channels, sampleRate int) (*mp3Encoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create MP3 file: %w", err)
	}

	return &mp3Encoder{
		path:       path,
		channels:   channels,
		sampleRate: sampleRate,
	}, nil
}

func (e *mp3Encoder) WriteSample(sample float32) error {
	if e.finalized {
		return ErrFinalized
	}
	e.samples = append(e.samples, sample)
	return nil
}

func (e *mp3Encoder) Path() string {
	return e.path
}

func (e *mp3Encoder) Finalize() error {
	if e.finalized {
		return ErrFinalized
	}
	e.finalized = true

	// Convert to 16-bit integers, clamped to [-1, 1] before scaling.
	pcm := make([]int16, len(e.samples))
	for i, s := range e.samples {
		pcm[i] = clampToInt16(s)
	}

	var buf bytes.Buffer
	enc := mp3.NewEncoder(e.sampleRate, e.channels)
	// Write encodes all frames including the encoder's internal lookahead.
	if err := enc.Write(&buf, pcm); err != nil {
		return fmt.Errorf("failed to encode MP3: %w", err)
	}

	if err := os.WriteFile(e.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write MP3 file: %w", err)
	}
	return nil
}
