package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmpijll/discrec/internal/capture"
	"github.com/jmpijll/discrec/internal/config"
	"github.com/jmpijll/discrec/internal/encoder"
	"github.com/jmpijll/discrec/internal/level"
)

// CaptureEngine records system or microphone audio to a single file.
type CaptureEngine interface {
	Start(opts capture.Options) error
	Stop() (string, error)
}

// VoiceBot records a Discord voice channel one file per speaker.
type VoiceBot interface {
	Connect(token string) error
	Connected() bool
	Disconnect() error
	StartRecording(guildID, channelID, outputDir string, format encoder.Format, notify bool) error
	StopRecording() ([]string, error)
}

type Config struct {
	Engine CaptureEngine
	Bot    VoiceBot
	Config *config.Config
	Logger zerolog.Logger

	// Recording and Peak are the shared state both collaborators were
	// built around. They must be the same pointers.
	Recording *atomic.Bool
	Peak      *level.Meter
}

// Status is a point-in-time snapshot for status displays.
type Status struct {
	Recording bool
	PeakLevel float32
}

// Recorder ties the two recording modes together behind one facade. The
// shared recording flag guarantees at most one mode is active at a time.
type Recorder struct {
	engine    CaptureEngine
	bot       VoiceBot
	cfg       *config.Config
	log       zerolog.Logger
	recording *atomic.Bool
	peak      *level.Meter
}

func New(cfg Config) *Recorder {
	return &Recorder{
		engine:    cfg.Engine,
		bot:       cfg.Bot,
		cfg:       cfg.Config,
		log:       cfg.Logger,
		recording: cfg.Recording,
		peak:      cfg.Peak,
	}
}

// StartCapture begins a system-audio recording using the configured
// format and output directory. label, when non-empty, is embedded in the
// output filename.
func (r *Recorder) StartCapture(label string) error {
	format, err := encoder.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}

	path := filepath.Join(r.cfg.OutputDir, recordingFilename(time.Now(), label, format))

	err = r.engine.Start(capture.Options{
		OutputPath:  path,
		Format:      format,
		SilenceTrim: r.cfg.SilenceTrim,
		MaxDuration: time.Duration(r.cfg.MaxDurationSecs) * time.Second,
	})
	if err != nil {
		return err
	}

	r.log.Info().Str("path", path).Msg("capture started")
	return nil
}

// StopCapture ends the system-audio recording and returns the finished
// file's path. Without an active recording it returns an empty path.
func (r *Recorder) StopCapture() (string, error) {
	return r.engine.Stop()
}

// ConnectVoice opens the Discord gateway session with the given token.
func (r *Recorder) ConnectVoice(token string) error {
	return r.bot.Connect(token)
}

// StartVoice joins the configured guild and voice channel and records
// each speaker to its own file.
func (r *Recorder) StartVoice() error {
	if r.cfg.Discord.GuildID == "" || r.cfg.Discord.ChannelID == "" {
		return fmt.Errorf("discord guild_id and channel_id must be configured")
	}

	format, err := encoder.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}

	return r.bot.StartRecording(
		r.cfg.Discord.GuildID,
		r.cfg.Discord.ChannelID,
		r.cfg.OutputDir,
		format,
		r.cfg.NotifyOnRecord,
	)
}

// StopVoice ends the voice recording and returns the per-speaker files.
func (r *Recorder) StopVoice() ([]string, error) {
	return r.bot.StopRecording()
}

// Status reports whether any recording mode is active and the current
// peak level, for status displays and level meters.
func (r *Recorder) Status() Status {
	return Status{
		Recording: r.recording.Load(),
		PeakLevel: r.peak.Value(),
	}
}

// Shutdown stops whatever is running so files get finalized. Safe to
// call when idle.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if path, err := r.engine.Stop(); err != nil {
		r.log.Error().Err(err).Msg("failed to stop capture during shutdown")
	} else if path != "" {
		r.log.Info().Str("path", path).Msg("recording saved")
	}

	if r.bot.Connected() {
		if err := r.bot.Disconnect(); err != nil {
			r.log.Error().Err(err).Msg("failed to disconnect from Discord during shutdown")
		}
	}
	return nil
}

// recordingFilename builds discrec-<timestamp>.<ext>, with the label
// inserted before the extension when present.
func recordingFilename(ts time.Time, label string, format encoder.Format) string {
	stamp := ts.Format("2006-01-02_150405")
	if label != "" {
		return fmt.Sprintf("discrec-%s-%s.%s", stamp, label, format.Extension())
	}
	return fmt.Sprintf("discrec-%s.%s", stamp, format.Extension())
}
