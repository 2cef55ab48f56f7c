// Package encoder provides the sample sinks a capture session writes into.
// A sink accepts normalized float32 samples in [-1, 1] one at a time and
// produces a single audio file when finalized.
package encoder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrFinalized is returned when an encoder is used after Finalize.
var ErrFinalized = errors.New("encoder already finalized")

// Format selects the output container/codec.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatMP3  Format = "mp3"
)

// ParseFormat maps a config/CLI string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, FormatFLAC, FormatMP3:
		return Format(s), nil
	case "":
		return FormatWAV, nil
	}
	return "", fmt.Errorf("unknown audio format %q (want wav, flac or mp3)", s)
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Encoder is a sample sink. WriteSample appends one normalized sample;
// Finalize flushes/encodes remaining data and closes the output file.
// Finalize is terminal: the encoder is unusable afterwards and both
// WriteSample and a second Finalize return ErrFinalized.
type Encoder interface {
	WriteSample(sample float32) error
	Path() string
	Finalize() error
}

// New creates an encoder for the given format, creating the parent
// directory of path if needed. With trim enabled the encoder is wrapped
// in the silence-trim decorator.
func New(path string, channels, sampleRate int, format Format, trim bool) (Encoder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	var (
		enc Encoder
		err error
	)
	switch format {
	case FormatWAV:
		enc, err = newWAVEncoder(path, channels, sampleRate)
	case FormatFLAC:
		enc, err = newFLACEncoder(path, channels, sampleRate)
	case FormatMP3:
		enc, err = newMP3Encoder(path, channels, sampleRate)
	default:
		return nil, fmt.Errorf("unknown audio format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if trim {
		enc = newSilenceTrim(enc)
	}
	return enc, nil
}

// clampToInt16 clamps a normalized sample to [-1, 1] and scales it to a
// 16-bit integer. All fixed-point backends quantize through this.
func clampToInt16(sample float32) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	return int16(sample * 32767)
}
