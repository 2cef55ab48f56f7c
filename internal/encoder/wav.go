package encoder

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavBatchSize is how many samples are buffered before flushing to disk.
const wavBatchSize = 4096

// wavEncoder streams 16-bit PCM to disk in small batches. The WAV header
// is patched on Close, so memory use is constant regardless of duration.
type wavEncoder struct {
	file        *os.File
	enc         *wav.Encoder
	buf         *audio.IntBuffer
	path        string
	wroteHeader bool
	finalized   bool
}

func newWAVEncoder(path string, channels, sampleRate int) (*wavEncoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	// audioFormat 1 = integer PCM. The encoder needs a WriteSeeker to
	// patch the RIFF sizes at close, so the file is used unbuffered.
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	return &wavEncoder{
		file: f,
		enc:  enc,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, 0, wavBatchSize),
			SourceBitDepth: 16,
		},
		path: path,
	}, nil
}

func (w *wavEncoder) WriteSample(sample float32) error {
	if w.finalized {
		return ErrFinalized
	}
	w.buf.Data = append(w.buf.Data, int(clampToInt16(sample)))
	if len(w.buf.Data) >= wavBatchSize {
		return w.flush()
	}
	return nil
}

// flush writes the buffered samples. An empty flush still goes through
// once: the underlying encoder only emits the RIFF header on its first
// Write, and Close patches sizes into whatever was written, so a session
// with no audio needs one empty Write to end up a well-formed file.
func (w *wavEncoder) flush() error {
	if len(w.buf.Data) == 0 && w.wroteHeader {
		return nil
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write audio samples: %w", err)
	}
	w.wroteHeader = true
	w.buf.Data = w.buf.Data[:0]
	return nil
}

func (w *wavEncoder) Path() string {
	return w.path
}

func (w *wavEncoder) Finalize() error {
	if w.finalized {
		return ErrFinalized
	}
	w.finalized = true

	if err := w.flush(); err != nil {
		w.enc.Close()
		w.file.Close()
		return err
	}
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close WAV file: %w", err)
	}
	return nil
}
