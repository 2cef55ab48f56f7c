// Package capture records loopback audio on a dedicated worker until
// stopped or a maximum duration elapses, streaming samples into a single
// encoder while publishing a live peak level.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmpijll/discrec/internal/encoder"
	"github.com/jmpijll/discrec/internal/level"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrWorkerPanicked is returned by Stop when the capture worker
	// terminated abnormally instead of finishing its session.
	ErrWorkerPanicked = errors.New("recording worker panicked")
	// ErrDeviceNotFound is returned when no loopback source can be resolved.
	ErrDeviceNotFound = errors.New("no loopback capture device found")
	// ErrProcessNotFound is returned on platforms that capture a specific
	// process when that process is not running.
	ErrProcessNotFound = errors.New("target process is not running")
)

// pollInterval bounds how long the worker goes between stop/duration checks.
// The peak meter decays once per idle interval.
const pollInterval = 200 * time.Millisecond

const peakDecayFactor = 0.95

// Options configures one recording session.
type Options struct {
	OutputPath  string
	Format      encoder.Format
	SilenceTrim bool
	// MaxDuration stops the session automatically when positive.
	MaxDuration time.Duration
}

type workerResult struct {
	path     string
	err      error
	panicked bool
}

// Engine owns at most one background capture worker. The recording flag
// and peak meter are shared with the rest of the process so status polling
// never blocks on the audio path.
type Engine struct {
	log       zerolog.Logger
	source    Source
	recording *atomic.Bool
	peak      *level.Meter

	mu     sync.Mutex
	stopCh chan struct{}
	result chan workerResult
}

// New creates an engine over the given stream source. recording and peak
// are owned by the caller so both capture modes can share them.
func New(source Source, recording *atomic.Bool, peak *level.Meter, log zerolog.Logger) *Engine {
	return &Engine{
		log:       log,
		source:    source,
		recording: recording,
		peak:      peak,
	}
}

// IsRecording reports whether a session is active. Safe to call from any
// goroutine at any time.
func (e *Engine) IsRecording() bool {
	return e.recording.Load()
}

// PeakLevel returns the most recent peak amplitude in [0, 1].
func (e *Engine) PeakLevel() float32 {
	return e.peak.Value()
}

// Start resolves the loopback source, creates the encoder and spawns the
// capture worker. It returns once capture is running; audio flows until
// Stop is called or MaxDuration elapses.
func (e *Engine) Start(opts Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A previous session that auto-stopped leaves its result uncollected
	// until the next Stop; absorb it here so Start can proceed. If the
	// old worker is still finalizing, the session is not over yet.
	if e.result != nil {
		select {
		case res := <-e.result:
			switch {
			case res.err != nil:
				e.log.Error().Err(res.err).Str("path", res.path).Msg("previous session failed to finalize")
			case res.path != "":
				e.log.Info().Str("path", res.path).Msg("previous session finalized")
			}
			e.result = nil
			e.stopCh = nil
		default:
			return ErrAlreadyRecording
		}
	}

	if !e.recording.CompareAndSwap(false, true) {
		return ErrAlreadyRecording
	}

	slot := &encoderSlot{}

	// The data callback runs on the audio backend's own thread. Peak is
	// last-write-wins per buffer; integer samples are normalized to
	// [-1, 1] before hitting the encoder.
	onData := func(samples []int16) {
		if !e.recording.Load() {
			return
		}
		var peak float32
		for _, s := range samples {
			abs := float32(s) / 32767
			if abs < 0 {
				abs = -abs
			}
			if abs > peak {
				peak = abs
			}
		}
		e.peak.Set(peak)
		slot.writeAll(samples, e.log)
	}

	stream, err := e.source.Open(onData)
	if err != nil {
		e.recording.Store(false)
		return err
	}

	enc, err := encoder.New(opts.OutputPath, stream.Channels(), stream.SampleRate(), opts.Format, opts.SilenceTrim)
	if err != nil {
		stream.Close()
		e.recording.Store(false)
		return fmt.Errorf("failed to initialize encoder: %w", err)
	}
	slot.store(enc)

	e.stopCh = make(chan struct{})
	e.result = make(chan workerResult, 1)

	go e.run(stream, slot, opts.MaxDuration, e.stopCh, e.result)

	e.log.Info().
		Str("path", opts.OutputPath).
		Str("format", string(opts.Format)).
		Bool("silence_trim", opts.SilenceTrim).
		Msg("recording started")
	return nil
}

// run is the capture worker. It polls for the stop signal on a bounded
// interval so the optional auto-stop duration can be enforced without an
// external caller, then tears the stream down before finalizing so no
// write can race the finalize.
func (e *Engine) run(stream Stream, slot *encoderSlot, maxDuration time.Duration, stopCh <-chan struct{}, result chan<- workerResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("capture worker panicked")
			e.recording.Store(false)
			result <- workerResult{panicked: true}
		}
	}()

	start := time.Now()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-stopCh:
			break loop
		case <-ticker.C:
			e.peak.Decay(peakDecayFactor)
			if maxDuration > 0 && time.Since(start) >= maxDuration {
				e.log.Info().Dur("max_duration", maxDuration).Msg("max recording duration reached, auto-stopping")
				e.recording.Store(false)
				break loop
			}
			if !e.recording.Load() {
				break loop
			}
		}
	}

	// Stop the stream first so no callback writes after finalize.
	if err := stream.Close(); err != nil {
		e.log.Warn().Err(err).Msg("failed to close capture stream")
	}

	enc := slot.take()
	if enc == nil {
		result <- workerResult{}
		return
	}

	path := enc.Path()
	if err := enc.Finalize(); err != nil {
		result <- workerResult{path: path, err: fmt.Errorf("failed to finalize recording: %w", err)}
		return
	}
	e.log.Info().Str("path", path).Msg("recording saved")
	result <- workerResult{path: path}
}

// Stop signals the worker, waits for it to finish and returns the path of
// the finalized file ("" when nothing was captured). Calling Stop without
// an active session is a no-op. There is no timeout on the join: a hung
// audio backend blocks Stop, which is accepted rather than hidden.
func (e *Engine) Stop() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.result == nil {
		return "", nil
	}

	e.recording.Store(false)
	e.peak.Reset()

	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}

	res := <-e.result
	e.result = nil

	if res.panicked {
		return "", ErrWorkerPanicked
	}
	return res.path, res.err
}
