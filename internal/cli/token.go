package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmpijll/discrec/internal/secrets"
)

func NewTokenCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the Discord bot token in the OS keychain",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the bot token, read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(os.Stderr, "Bot token: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			token := strings.TrimSpace(line)
			if token == "" {
				return errors.New("empty token")
			}

			if err := secrets.SetBotToken(deps.Secrets, token); err != nil {
				return err
			}
			fmt.Println("Token stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored bot token",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := secrets.DeleteBotToken(deps.Secrets)
			if errors.Is(err, secrets.ErrNotFound) {
				fmt.Println("No token stored")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("Token removed")
			return nil
		},
	})

	return cmd
}
