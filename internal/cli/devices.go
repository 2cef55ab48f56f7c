package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmpijll/discrec/internal/capture"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := capture.ListDevices(deps.Logger)
			if err != nil {
				return err
			}
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, d.Name)
			}
			return nil
		},
	}
}
