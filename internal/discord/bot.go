package discord

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/jmpijll/discrec/internal/capture"
	"github.com/jmpijll/discrec/internal/encoder"
	"github.com/jmpijll/discrec/internal/level"
)

// ErrNotConnected is returned for operations that need a gateway session.
var ErrNotConnected = errors.New("not connected to Discord")

// GuildInfo identifies one guild the bot can see.
type GuildInfo struct {
	ID   string
	Name string
}

// VoiceChannelInfo identifies one joinable voice channel.
type VoiceChannelInfo struct {
	ID      string
	Name    string
	GuildID string
}

// Bot is the connection collaborator: it owns the gateway session and
// hands an already-joined voice session to the receiver. The recording
// flag and peak meter are the same ones the capture engine uses, so
// status polling is uniform and only one capture mode can run at a time.
type Bot struct {
	log       zerolog.Logger
	recording *atomic.Bool
	peak      *level.Meter

	mu       sync.Mutex
	session  *discordgo.Session
	voice    VoiceSession
	receiver *Receiver
}

// NewBot creates a disconnected bot sharing the given recording state.
func NewBot(recording *atomic.Bool, peak *level.Meter, log zerolog.Logger) *Bot {
	return &Bot{
		log:       log,
		recording: recording,
		peak:      peak,
	}
}

// Connect opens the gateway session with voice-state intents.
func (b *Bot) Connect(token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil {
		return errors.New("already connected to Discord")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if err := s.Open(); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}

	b.session = s
	b.log.Info().Str("user", s.State.User.Username).Msg("Discord bot connected")
	return nil
}

// Connected reports whether the gateway session is open.
func (b *Bot) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session != nil
}

// Disconnect closes the gateway session. An active recording is stopped
// first so its files get finalized.
func (b *Bot) Disconnect() error {
	if _, err := b.StopRecording(); err != nil {
		b.log.Warn().Err(err).Msg("failed to finalize recordings during disconnect")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	b.log.Info().Msg("Discord bot disconnected")
	if err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

// Guilds lists the guilds the bot is a member of.
func (b *Bot) Guilds() ([]GuildInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, ErrNotConnected
	}

	guilds := make([]GuildInfo, 0, len(b.session.State.Guilds))
	for _, g := range b.session.State.Guilds {
		guilds = append(guilds, GuildInfo{ID: g.ID, Name: g.Name})
	}
	return guilds, nil
}

// VoiceChannels lists the voice channels of one guild.
func (b *Bot) VoiceChannels(guildID string) ([]VoiceChannelInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil, ErrNotConnected
	}

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels: %w", err)
	}

	var voice []VoiceChannelInfo
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildVoice {
			voice = append(voice, VoiceChannelInfo{ID: ch.ID, Name: ch.Name, GuildID: guildID})
		}
	}
	return voice, nil
}

// StartRecording joins the voice channel and starts the per-speaker
// receiver. notify posts a notice to the channel's text chat so
// participants know they are being recorded.
func (b *Bot) StartRecording(guildID, channelID, outputDir string, format encoder.Format, notify bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNotConnected
	}
	if !b.recording.CompareAndSwap(false, true) {
		return capture.ErrAlreadyRecording
	}

	// Muted, not deafened: the bot only listens.
	vc, err := b.session.ChannelVoiceJoin(guildID, channelID, true, false)
	if err != nil {
		b.recording.Store(false)
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	receiver := NewReceiver(ReceiverConfig{
		OutputDir: outputDir,
		Format:    format,
		Recording: b.recording,
		Peak:      b.peak,
		Logger:    b.log,
	})
	session := &voiceConn{vc: vc}
	receiver.Run(session)

	b.voice = session
	b.receiver = receiver

	b.log.Info().Str("guild", guildID).Str("channel", channelID).Msg("voice recording started")

	if notify {
		if _, err := b.session.ChannelMessageSend(channelID, "🔴 Recording started by DiscRec"); err != nil {
			b.log.Warn().Err(err).Msg("failed to send recording notification")
		}
	}
	return nil
}

// StopRecording leaves the voice channel and finalizes every per-speaker
// encoder, returning the written file paths. Calling it with no active
// recording returns an empty list.
func (b *Bot) StopRecording() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.receiver == nil {
		return nil, nil
	}

	b.recording.Store(false)
	b.peak.Reset()

	if err := b.voice.Leave(); err != nil {
		b.log.Warn().Err(err).Msg("failed to leave voice channel")
	}

	paths, err := b.receiver.Stop()
	b.voice = nil
	b.receiver = nil
	return paths, err
}
