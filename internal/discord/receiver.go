// Package discord records a voice channel one file per speaker, fed by an
// already-connected voice session.
package discord

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"

	"github.com/jmpijll/discrec/internal/encoder"
	"github.com/jmpijll/discrec/internal/level"
)

const (
	// Discord voice is 48 kHz Opus; each speaker is decoded to mono.
	voiceSampleRate = 48000
	voiceChannels   = 1
	// opusFrameSize is samples per channel in a 20 ms Discord frame.
	opusFrameSize = 960
)

// opusDecoder decodes one speaker's Opus stream to PCM. Satisfied by
// *gopus.Decoder; tests substitute fakes.
type opusDecoder interface {
	Decode(data []byte, frameSize int, fec bool) ([]int16, error)
}

// ReceiverConfig wires a Receiver to its collaborators.
type ReceiverConfig struct {
	OutputDir string
	Format    encoder.Format
	Recording *atomic.Bool
	Peak      *level.Meter
	Logger    zerolog.Logger
}

// Receiver fans incoming voice packets out to one encoder per speaker.
// The SSRC map and encoder map have separate locks because speaking
// updates and audio arrive on different event callbacks with no ordering
// guarantee between them.
type Receiver struct {
	log       zerolog.Logger
	outputDir string
	format    encoder.Format
	recording *atomic.Bool
	peak      *level.Meter

	ssrcMu  sync.Mutex
	ssrcMap map[uint32]string

	encMu    sync.Mutex
	encoders map[uint32]encoder.Encoder

	// decoders is touched only by the packet-drain goroutine.
	decoders   map[uint32]opusDecoder
	newDecoder func() (opusDecoder, error)

	done chan struct{}
}

// NewReceiver creates a receiver writing per-speaker files into OutputDir.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	return &Receiver{
		log:       cfg.Logger,
		outputDir: cfg.OutputDir,
		format:    cfg.Format,
		recording: cfg.Recording,
		peak:      cfg.Peak,
		ssrcMap:   make(map[uint32]string),
		encoders:  make(map[uint32]encoder.Encoder),
		decoders:  make(map[uint32]opusDecoder),
		newDecoder: func() (opusDecoder, error) {
			return gopus.NewDecoder(voiceSampleRate, voiceChannels)
		},
		done: make(chan struct{}),
	}
}

// Run registers the speaking-update handler and starts draining packets.
// It returns immediately; the drain goroutine exits when the session's
// packet channel closes.
func (r *Receiver) Run(session VoiceSession) {
	session.OnSpeakingUpdate(r.speakingUpdate)
	go r.drain(session.Packets())
}

func (r *Receiver) drain(packets <-chan *discordgo.Packet) {
	defer close(r.done)
	for p := range packets {
		if !r.recording.Load() {
			continue
		}
		r.handlePacket(p)
	}
}

// speakingUpdate records an SSRC-to-user mapping, last write wins. An
// existing encoder named by raw SSRC is never renamed; only encoders
// created after this point use the resolved identity.
func (r *Receiver) speakingUpdate(ssrc uint32, userID string) {
	if userID == "" {
		return
	}
	r.ssrcMu.Lock()
	r.ssrcMap[ssrc] = userID
	r.ssrcMu.Unlock()
	r.log.Info().Uint32("ssrc", ssrc).Str("user", userID).Msg("speaker mapping updated")
}

func (r *Receiver) handlePacket(p *discordgo.Packet) {
	dec, ok := r.decoders[p.SSRC]
	if !ok {
		var err error
		dec, err = r.newDecoder()
		if err != nil {
			r.log.Error().Err(err).Uint32("ssrc", p.SSRC).Msg("failed to create opus decoder")
			return
		}
		r.decoders[p.SSRC] = dec
	}

	pcm, err := dec.Decode(p.Opus, opusFrameSize, false)
	if err != nil {
		r.log.Warn().Err(err).Uint32("ssrc", p.SSRC).Msg("failed to decode voice packet")
		return
	}

	r.writePCM(p.SSRC, pcm)
}

// writePCM updates the shared peak meter and writes one speaker's decoded
// samples in arrival order. Ticks arrive at a steady cadence, so the
// meter is overwritten rather than decayed.
func (r *Receiver) writePCM(ssrc uint32, pcm []int16) {
	var peak float32
	for _, s := range pcm {
		abs := float32(s) / 32767
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
	}
	r.peak.Set(peak)

	enc, err := r.encoderFor(ssrc)
	if err != nil {
		r.log.Error().Err(err).Uint32("ssrc", ssrc).Msg("failed to create encoder for speaker")
		return
	}

	for _, s := range pcm {
		if err := enc.WriteSample(float32(s) / 32767); err != nil {
			r.log.Error().Err(err).Uint32("ssrc", ssrc).Msg("failed to write audio sample")
			return
		}
	}
}

// encoderFor lazily creates the per-speaker encoder on first audio. The
// file is named by resolved user identity when the mapping is already
// known, otherwise by the raw transport SSRC.
func (r *Receiver) encoderFor(ssrc uint32) (encoder.Encoder, error) {
	r.encMu.Lock()
	defer r.encMu.Unlock()

	if enc, ok := r.encoders[ssrc]; ok {
		return enc, nil
	}

	r.ssrcMu.Lock()
	userID, mapped := r.ssrcMap[ssrc]
	r.ssrcMu.Unlock()

	label := fmt.Sprintf("ssrc-%d", ssrc)
	if mapped {
		label = "user-" + userID
	}

	filename := fmt.Sprintf("discrec-%s-%s.%s",
		time.Now().Format("2006-01-02_150405"), label, r.format.Extension())
	path := filepath.Join(r.outputDir, filename)

	enc, err := encoder.New(path, voiceChannels, voiceSampleRate, r.format, false)
	if err != nil {
		return nil, err
	}
	r.log.Info().Uint32("ssrc", ssrc).Str("path", path).Msg("created encoder for speaker")
	r.encoders[ssrc] = enc
	return enc, nil
}

// Stop takes ownership of the whole speaker-to-encoder map and finalizes
// every encoder, returning the produced file paths. An empty slice means
// nothing was recorded, which is not an error. Finalize failures are
// collected so the remaining speakers still get their files.
func (r *Receiver) Stop() ([]string, error) {
	r.encMu.Lock()
	encoders := r.encoders
	r.encoders = make(map[uint32]encoder.Encoder)
	r.encMu.Unlock()

	paths := make([]string, 0, len(encoders))
	var firstErr error
	for ssrc, enc := range encoders {
		path := enc.Path()
		if err := enc.Finalize(); err != nil {
			r.log.Error().Err(err).Uint32("ssrc", ssrc).Str("path", path).Msg("failed to finalize speaker recording")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to finalize %s: %w", path, err)
			}
			continue
		}
		r.log.Info().Uint32("ssrc", ssrc).Str("path", path).Msg("speaker recording saved")
		paths = append(paths, path)
	}
	return paths, firstErr
}
