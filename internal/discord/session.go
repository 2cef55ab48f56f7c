package discord

import (
	"github.com/bwmarrin/discordgo"
)

// VoiceSession is an already-joined voice connection as the receiver sees
// it: a stream of Opus packets, speaking-state updates mapping SSRCs to
// users, and a way to leave. Tests substitute mocks.
type VoiceSession interface {
	// OnSpeakingUpdate registers a callback for SSRC-to-user mappings.
	// Updates may arrive before or after audio for the same SSRC.
	OnSpeakingUpdate(fn func(ssrc uint32, userID string))
	// Packets returns the incoming voice packet channel. It is closed
	// when the session ends.
	Packets() <-chan *discordgo.Packet
	Leave() error
}

// voiceConn adapts a discordgo voice connection to VoiceSession.
type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) OnSpeakingUpdate(fn func(ssrc uint32, userID string)) {
	c.vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		fn(uint32(vs.SSRC), vs.UserID)
	})
}

func (c *voiceConn) Packets() <-chan *discordgo.Packet {
	return c.vc.OpusRecv
}

func (c *voiceConn) Leave() error {
	return c.vc.Disconnect()
}
