package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/voice-features/internal/app"
)

var decodeTimeout time.Duration

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [flags] <file>",
	Short: "Decode an audio file and describe the analysis buffer",
	Long: `Decode a file the way extract does and print the source format, sample
rate and channel count along with the decoded length, duration, peak and RMS.

Examples:
  # Inspect a recording
  voice-features decode speech.m4a

  # Decode at 22.05 kHz as JSON
  voice-features decode --sample-rate 22050 -o json speech.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().DurationVar(&decodeTimeout, "timeout", 30*time.Second,
		"decode timeout")
	decodeCmd.Flags().Int("sample-rate", 16000, "analysis sample rate (env "+envName("decode.target_sample_rate")+")")
	bindKey(decodeCmd.Flags(), "sample-rate", "decode.target_sample_rate")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.NewApp(&app.Context{
		Pretty: true,
		Config: cfg,
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), decodeTimeout)
	defer cancel()

	return application.Decode(ctx, args[0])
}
