package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/voice-features/internal/app"
)

var (
	extractOutputFile string
	extractSummary    bool
	extractCompact    bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [flags] <files...>",
	Short: "Extract voice features from audio files",
	Long: `Decode each file and extract its summary voice features.

Files are processed concurrently. A file that cannot be decoded is reported
with its error and does not stop the others unless --fail-fast is set. A
feature that fails on an otherwise readable file reports 0 and is listed
under failures.

Examples:
  # Extract features of one file as a table
  voice-features extract speech.wav

  # Extract a directory of recordings as CSV with 8 workers
  voice-features extract -o csv --max-concurrency 8 recordings/*.flac > features.csv

  # JSON with cross-file statistics, pitch from the 16 kHz buffer
  voice-features extract -o json --summary --reuse-buffer a.mp3 b.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringVarP(&extractOutputFile, "output-file", "f", "",
		"write results to a file instead of stdout")
	flags.BoolVar(&extractSummary, "summary", false,
		"add cross-file feature statistics")
	flags.BoolVar(&extractCompact, "compact", false,
		"compact JSON output")

	flags.Int("max-concurrency", 4, "files processed in parallel (env "+envName("batch.max_concurrency")+")")
	flags.Duration("timeout", 0, "per-file timeout, 0 disables (env "+envName("batch.timeout")+")")
	flags.Bool("fail-fast", false, "stop at the first file that fails (env "+envName("batch.fail_fast")+")")
	flags.Bool("reuse-buffer", false, "estimate pitch from the analysis buffer instead of re-decoding (env "+envName("pitch.reuse_buffer")+")")
	flags.Bool("voice-quality", true, "measure jitter, shimmer and HNR (env "+envName("features.voice_quality")+")")
	flags.String("voice-quality-provider", "periodicity", "jitter/shimmer/HNR backend: periodicity or sonar (env "+envName("features.voice_quality_provider")+")")
	flags.Int("sample-rate", 16000, "analysis sample rate (env "+envName("decode.target_sample_rate")+")")

	bindKey(flags, "max-concurrency", "batch.max_concurrency")
	bindKey(flags, "timeout", "batch.timeout")
	bindKey(flags, "fail-fast", "batch.fail_fast")
	bindKey(flags, "reuse-buffer", "pitch.reuse_buffer")
	bindKey(flags, "voice-quality", "features.voice_quality")
	bindKey(flags, "voice-quality-provider", "features.voice_quality_provider")
	bindKey(flags, "sample-rate", "decode.target_sample_rate")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.NewApp(&app.Context{
		OutputFile: extractOutputFile,
		Summary:    extractSummary,
		Pretty:     !extractCompact,
		Config:     cfg,
		Stdout:     cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Extract(ctx, args)
}
