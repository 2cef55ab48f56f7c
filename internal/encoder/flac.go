package encoder

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// flacBlockSize is the number of inter-channel samples per FLAC frame.
const flacBlockSize = 4096

// flacEncoder accumulates all samples in memory and runs the lossless
// compression pass once at finalize. Memory cost scales with duration.
type flacEncoder struct {
	path       string
	channels   int
	sampleRate int
	samples    []float32
	finalized  bool
}

func newFLACEncoder(path string, channels, sampleRate int) (*flacEncoder, error) {
	// Probe writability up front so a bad output path fails at start,
	// not at stop when the audio is already captured.
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create FLAC file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create FLAC file: %w", err)
	}

	return &flacEncoder{
		path:       path,
		channels:   channels,
		sampleRate: sampleRate,
	}, nil
}

func (e *flacEncoder) WriteSample(sample float32) error {
	if e.finalized {
		return ErrFinalized
	}
	e.samples = append(e.samples, sample)
	return nil
}

func (e *flacEncoder) Path() string {
	return e.path
}

func (e *flacEncoder) Finalize() error {
	if e.finalized {
		return ErrFinalized
	}
	e.finalized = true

	var buf bytes.Buffer
	if err := e.encode(&buf); err != nil {
		return fmt.Errorf("failed to encode FLAC: %w", err)
	}

	// Single atomic write of the finished stream.
	if err := os.WriteFile(e.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write FLAC file: %w", err)
	}
	return nil
}

func (e *flacEncoder) encode(buf *bytes.Buffer) error {
	nframes := len(e.samples) / e.channels

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(e.sampleRate),
		NChannels:     uint8(e.channels),
		BitsPerSample: 16,
		NSamples:      uint64(nframes),
	}

	enc, err := flac.NewEncoder(buf, info)
	if err != nil {
		return err
	}

	channels := frame.ChannelsMono
	if e.channels == 2 {
		channels = frame.ChannelsLR
	}

	// Quantize to 16 bit, clamped to [-1, 1] before scaling.
	quantized := make([]int32, nframes*e.channels)
	for i := range quantized {
		quantized[i] = int32(clampToInt16(e.samples[i]))
	}

	for off := 0; off < nframes; off += flacBlockSize {
		n := nframes - off
		if n > flacBlockSize {
			n = flacBlockSize
		}

		subframes := make([]*frame.Subframe, e.channels)
		for ch := range subframes {
			sub := &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				NSamples:  n,
			}
			sub.Samples = make([]int32, n)
			for i := 0; i < n; i++ {
				sub.Samples[i] = quantized[(off+i)*e.channels+ch]
			}
			subframes[ch] = sub
		}

		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: false,
				BlockSize:         uint16(n),
				SampleRate:        uint32(e.sampleRate),
				Channels:          channels,
				BitsPerSample:     16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return err
		}
	}

	return enc.Close()
}
