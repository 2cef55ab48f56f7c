// Package cli wires the cobra command tree for the discrec binary.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jmpijll/discrec/internal/app"
	"github.com/jmpijll/discrec/internal/config"
	"github.com/jmpijll/discrec/internal/discord"
	"github.com/jmpijll/discrec/internal/secrets"
)

type Dependencies struct {
	Recorder *app.Recorder
	Bot      *discord.Bot
	Config   *config.Config
	Secrets  secrets.Store
	Logger   zerolog.Logger
	Version  string
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "discrec",
		Short: "Record system audio and Discord voice channels",
		Long:  "A recorder for voice sessions: captures system or application audio to WAV, FLAC or MP3, and records Discord voice channels with one file per speaker.",
	}

	rootCmd.Version = deps.Version

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewVoiceCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewTokenCmd(deps))

	return rootCmd
}
