package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var label string
	var format string
	var output string
	var trim bool
	var maxDuration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record system audio to a file",
		Long:  "Record the configured audio source in the foreground. Stop with Ctrl+C, or let --max-duration stop it for you.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "" {
				deps.Config.Format = format
			}
			if output != "" {
				deps.Config.OutputDir = output
			}
			if cmd.Flags().Changed("trim") {
				deps.Config.SilenceTrim = trim
			}
			if cmd.Flags().Changed("max-duration") {
				deps.Config.MaxDurationSecs = int(maxDuration.Seconds())
			}

			if err := deps.Recorder.StartCapture(label); err != nil {
				return err
			}
			fmt.Println("Recording... press Ctrl+C to stop")

			waitForStop(deps)

			path, err := deps.Recorder.StopCapture()
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Label embedded in the output filename")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: wav, flac or mp3 (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().BoolVar(&trim, "trim", false, "Drop silent stretches from the output (overrides config)")
	cmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "Stop automatically after this long (overrides config)")

	return cmd
}

// waitForStop blocks until the user interrupts or the recording stops on
// its own, e.g. by hitting the maximum duration.
func waitForStop(deps *Dependencies) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			if !deps.Recorder.Status().Recording {
				return
			}
		}
	}
}
