package capture

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jmpijll/discrec/internal/encoder"
)

// encoderSlot is a single-slot exclusive container for the session encoder.
// The audio callback writes through it while the controlling goroutine can
// empty it exactly once at stop time, after which writes become no-ops.
type encoderSlot struct {
	mu  sync.Mutex
	enc encoder.Encoder
}

func (s *encoderSlot) store(enc encoder.Encoder) {
	s.mu.Lock()
	s.enc = enc
	s.mu.Unlock()
}

// writeAll normalizes and writes a buffer of integer samples. A write
// failure is logged and the remainder of that buffer is abandoned; the
// session keeps going so already-captured audio is not lost.
func (s *encoderSlot) writeAll(samples []int16, log zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enc == nil {
		return
	}
	for _, sample := range samples {
		if err := s.enc.WriteSample(float32(sample) / 32767); err != nil {
			log.Error().Err(err).Msg("failed to write audio sample")
			return
		}
	}
}

// take empties the slot and returns the encoder, or nil if it was already
// taken. The caller becomes the sole owner and is responsible for Finalize.
func (s *encoderSlot) take() encoder.Encoder {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := s.enc
	s.enc = nil
	return enc
}
