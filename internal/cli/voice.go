package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmpijll/discrec/internal/secrets"
)

func NewVoiceCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Record a Discord voice channel, one file per speaker",
	}

	cmd.AddCommand(newVoiceRecordCmd(deps))
	cmd.AddCommand(newVoiceGuildsCmd(deps))
	cmd.AddCommand(newVoiceChannelsCmd(deps))

	return cmd
}

func newVoiceRecordCmd(deps *Dependencies) *cobra.Command {
	var guildID string
	var channelID string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Join the configured voice channel and record until Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID != "" {
				deps.Config.Discord.GuildID = guildID
			}
			if channelID != "" {
				deps.Config.Discord.ChannelID = channelID
			}

			if err := connectBot(deps); err != nil {
				return err
			}
			defer deps.Bot.Disconnect()

			if err := deps.Recorder.StartVoice(); err != nil {
				return err
			}
			fmt.Println("Recording voice channel... press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			signal.Stop(sigCh)

			paths, err := deps.Recorder.StopVoice()
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Println("No audio received, nothing saved")
				return nil
			}
			for _, p := range paths {
				fmt.Printf("Saved %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&guildID, "guild", "g", "", "Guild ID (overrides config)")
	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Voice channel ID (overrides config)")

	return cmd
}

func newVoiceGuildsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "guilds",
		Short: "List the guilds the bot is a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connectBot(deps); err != nil {
				return err
			}
			defer deps.Bot.Disconnect()

			guilds, err := deps.Bot.Guilds()
			if err != nil {
				return err
			}
			for _, g := range guilds {
				fmt.Printf("%s  %s\n", g.ID, g.Name)
			}
			return nil
		},
	}
}

func newVoiceChannelsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "channels <guild-id>",
		Short: "List the voice channels of a guild",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connectBot(deps); err != nil {
				return err
			}
			defer deps.Bot.Disconnect()

			channels, err := deps.Bot.VoiceChannels(args[0])
			if err != nil {
				return err
			}
			for _, ch := range channels {
				fmt.Printf("%s  %s\n", ch.ID, ch.Name)
			}
			return nil
		},
	}
}

// connectBot resolves the bot token and opens the gateway session. The
// DISCREC_TOKEN environment variable takes precedence over the keychain.
func connectBot(deps *Dependencies) error {
	token := os.Getenv("DISCREC_TOKEN")
	if token == "" {
		var err error
		token, err = secrets.BotToken(deps.Secrets)
		if errors.Is(err, secrets.ErrNotFound) {
			return errors.New("no bot token configured, run 'discrec token set' first")
		}
		if err != nil {
			return err
		}
	}

	return deps.Recorder.ConnectVoice(token)
}
