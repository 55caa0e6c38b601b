package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/voice-features/configs"
	"github.com/RyanBlaney/voice-features/internal/batch"
	"github.com/RyanBlaney/voice-features/internal/output"
	"github.com/RyanBlaney/voice-features/pkg/audio/decode"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// Context holds the command line arguments and the loaded configuration
type Context struct {
	// CLI arguments
	OutputFile string
	Summary    bool
	Pretty     bool

	// Runtime context
	Config *configs.Config
	Stdout io.Writer
	Logger logging.Logger
}

// App handles the application lifecycle
type App struct {
	ctx       *Context
	config    *configs.Config
	decoder   *decode.Decoder
	extractor *extractors.Extractor
	logger    logging.Logger
}

// NewApp validates the configuration and builds the decoding and extraction pipeline
func NewApp(ctx *Context) (*App, error) {
	if ctx.Config == nil {
		return nil, errors.New("configuration is required")
	}
	if err := configs.ValidateConfig(ctx.Config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if ctx.Stdout == nil {
		ctx.Stdout = os.Stdout
	}

	logger, err := setupLogging(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Logger = logger

	decoder, err := decode.NewDecoder(ctx.Config.DecoderConfig(), decode.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	extractor, err := extractors.NewExtractor(ctx.Config.FeatureConfig(), decoder, extractors.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	logger.Debug("Application initialized", logging.Fields{
		"output_format":      ctx.Config.OutputFormat,
		"target_sample_rate": ctx.Config.Decode.TargetSampleRate,
		"voice_quality":      ctx.Config.Features.VoiceQuality,
		"provider":           ctx.Config.Features.VoiceQualityProvider,
	})

	return &App{
		ctx:       ctx,
		config:    ctx.Config,
		decoder:   decoder,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Extract runs the batch extraction over paths and writes the report
func (app *App) Extract(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("at least one audio file is required")
	}

	orchestrator, err := batch.NewOrchestrator(batch.Config{
		MaxConcurrency: app.config.Batch.MaxConcurrency,
		Timeout:        app.config.Batch.Timeout,
		FailFast:       app.config.Batch.FailFast,
	}, app.decoder, app.extractor, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create batch orchestrator: %w", err)
	}

	report, runErr := orchestrator.Run(ctx, paths)
	if report != nil {
		if err := app.outputResults(output.NewReportView(report, app.ctx.Summary)); err != nil {
			return fmt.Errorf("failed to output results: %w", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("extraction stopped: %w", runErr)
	}

	// Return error if every file failed
	if failed := len(report.Failed()); failed > 0 && failed == len(report.Results) {
		return fmt.Errorf("all %d files failed", failed)
	}

	return nil
}

// Decode decodes one file and writes its buffer description
func (app *App) Decode(ctx context.Context, path string) error {
	buf, err := app.decoder.DecodeContext(ctx, path)
	if err != nil {
		return err
	}
	return app.outputResults(output.NewBufferInfo(buf))
}

// setupLogging configures the shared logger from the configuration
func setupLogging(ctx *Context) (logging.Logger, error) {
	opts, err := ctx.Config.LoggingOptions()
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(opts); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return logging.WithFields(logging.Fields{"component": "app"}), nil
}

// outputResults formats data and writes it to the output file or stdout
func (app *App) outputResults(data any) error {
	formatter, err := output.NewFormatter(app.config.OutputFormat)
	if err != nil {
		return err
	}

	formatted, err := formatter.Format(data, app.ctx.Pretty)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}
	if n := len(formatted); n > 0 && formatted[n-1] != '\n' {
		formatted = append(formatted, '\n')
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(formatted)
	}

	_, err = app.ctx.Stdout.Write(formatted)
	return err
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(app.ctx.OutputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(app.ctx.OutputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}
