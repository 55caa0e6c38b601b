package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// Decoder produces the analysis buffer of a file
type Decoder interface {
	DecodeContext(ctx context.Context, path string) (*common.AudioBuffer, error)
}

// Extractor computes the features of a decoded buffer
type Extractor interface {
	ExtractContext(ctx context.Context, buffer *common.AudioBuffer, path string) (*extractors.FeatureSet, error)
}

// Config controls a batch run
type Config struct {
	MaxConcurrency int
	Timeout        time.Duration // per file, 0 disables
	FailFast       bool
}

// FileResult is the outcome of one file
type FileResult struct {
	Path     string                 `json:"path" yaml:"path"`
	Features *extractors.FeatureSet `json:"features,omitempty" yaml:"features,omitempty"`

	// Per-band contrast means and failed feature keys, kept beside the feature mapping
	ContrastBands []float64         `json:"spectral_contrast_bands,omitempty" yaml:"spectral_contrast_bands,omitempty"`
	Failures      map[string]string `json:"failures,omitempty" yaml:"failures,omitempty"`

	Duration float64       `json:"duration_seconds" yaml:"duration_seconds"` // audio length
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
	Err      error         `json:"-" yaml:"-"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report holds every file result in input order
type Report struct {
	Results   []*FileResult `json:"results" yaml:"results"`
	Summary   *Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
}

// Failed returns the results that carry an error
func (r *Report) Failed() []*FileResult {
	var failed []*FileResult
	for _, res := range r.Results {
		if res != nil && res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Orchestrator decodes and extracts many files concurrently
type Orchestrator struct {
	config    Config
	decoder   Decoder
	extractor Extractor
	metrics   *MetricsCalculator
	logger    logging.Logger
}

// NewOrchestrator creates a batch orchestrator
func NewOrchestrator(cfg Config, decoder Decoder, extractor Extractor, logger logging.Logger) (*Orchestrator, error) {
	if decoder == nil || extractor == nil {
		return nil, errors.New("decoder and extractor are required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Orchestrator{
		config:    cfg,
		decoder:   decoder,
		extractor: extractor,
		metrics:   NewMetricsCalculator(logger),
		logger:    logger.WithFields(logging.Fields{"component": "batch_orchestrator"}),
	}, nil
}

// Run processes paths and summarizes the successful results. With FailFast the
// first failure cancels the remaining files and is returned alongside the partial report.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{
		Results:   make([]*FileResult, len(paths)),
		StartTime: time.Now(),
	}

	o.logger.Debug("Starting batch extraction", logging.Fields{
		"files":           len(paths),
		"max_concurrency": o.config.MaxConcurrency,
		"fail_fast":       o.config.FailFast,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.MaxConcurrency)

	for i, path := range paths {
		if gctx.Err() != nil {
			report.Results[i] = failedResult(path, gctx.Err())
			continue
		}

		g.Go(func() error {
			res := o.processFile(gctx, path)
			report.Results[i] = res
			if res.Err != nil && o.config.FailFast {
				return fmt.Errorf("%s: %w", path, res.Err)
			}
			return nil
		})
	}

	err := g.Wait()
	report.EndTime = time.Now()

	for i, res := range report.Results {
		if res == nil {
			report.Results[i] = failedResult(paths[i], context.Canceled)
		}
	}
	report.Summary = o.metrics.Summarize(report.Results)

	o.logger.Debug("Batch extraction completed", logging.Fields{
		"files":      len(paths),
		"failed":     len(report.Failed()),
		"duration_s": report.EndTime.Sub(report.StartTime).Seconds(),
	})

	return report, err
}

func (o *Orchestrator) processFile(ctx context.Context, path string) *FileResult {
	start := time.Now()

	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	buffer, err := o.decoder.DecodeContext(ctx, path)
	if err != nil {
		o.logger.Warn("Decoding failed", logging.Fields{
			"path":  path,
			"code":  common.ErrorCode(err),
			"error": err.Error(),
		})
		res := failedResult(path, err)
		res.Elapsed = time.Since(start)
		return res
	}

	features, err := o.extractor.ExtractContext(ctx, buffer, path)
	if err != nil {
		res := failedResult(path, err)
		res.Elapsed = time.Since(start)
		return res
	}

	return &FileResult{
		Path:          path,
		Features:      features,
		ContrastBands: features.SpectralContrastBands,
		Failures:      features.Failures,
		Duration:      buffer.Duration().Seconds(),
		Elapsed:       time.Since(start),
	}
}

func failedResult(path string, err error) *FileResult {
	return &FileResult{Path: path, Err: err, Error: err.Error()}
}
