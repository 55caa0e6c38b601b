package extractors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/audio/config"
	"github.com/RyanBlaney/voice-features/pkg/audio/decode"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/analyzers"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/pitch"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

var errNoSpectrogram = errors.New("spectrogram unavailable")

// NativeDecoder re-reads a file at its own sample rate for pitch analysis
type NativeDecoder interface {
	DecodeNativeContext(ctx context.Context, path string) (*common.AudioBuffer, error)
}

// Extractor computes a FeatureSet from a decoded buffer
type Extractor struct {
	config       *config.FeatureConfig
	decoder      NativeDecoder
	voiceQuality pitch.VoiceQualityProvider
	logger       logging.Logger
}

// Option customizes an Extractor
type Option func(*Extractor)

// WithVoiceQualityProvider replaces the jitter/shimmer/HNR provider. nil disables it.
func WithVoiceQualityProvider(p pitch.VoiceQualityProvider) Option {
	return func(e *Extractor) { e.voiceQuality = p }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor. A nil config uses the defaults and a nil
// decoder uses a default decode.Decoder.
func NewExtractor(cfg *config.FeatureConfig, decoder NativeDecoder, opts ...Option) (*Extractor, error) {
	if cfg == nil {
		cfg = config.DefaultFeatureConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}

	if decoder == nil {
		d, err := decode.NewDecoder(nil)
		if err != nil {
			return nil, err
		}
		decoder = d
	}

	e := &Extractor{
		config:  cfg,
		decoder: decoder,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
	if cfg.EnableVoiceQuality {
		p, err := pitch.NewVoiceQualityProvider(cfg.VoiceQualityProvider)
		if err != nil {
			return nil, err
		}
		e.voiceQuality = p
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the analysis parameters
func (e *Extractor) Config() config.FeatureConfig {
	return *e.config
}

// Extract computes every feature of buffer. path is re-read for pitch estimation
// unless pitch.reuse_buffer is set.
func (e *Extractor) Extract(buffer *common.AudioBuffer, path string) (*FeatureSet, error) {
	return e.ExtractContext(context.Background(), buffer, path)
}

// ExtractContext is Extract with cancellation of the pitch re-decode
func (e *Extractor) ExtractContext(ctx context.Context, buffer *common.AudioBuffer, path string) (*FeatureSet, error) {
	if err := buffer.Validate(); err != nil {
		return nil, err
	}

	logger := e.logger.WithFields(logging.Fields{
		"function":    "Extract",
		"path":        path,
		"samples":     len(buffer.Samples),
		"sample_rate": buffer.SampleRate,
	})
	start := time.Now()

	cfg := e.config
	fs := &FeatureSet{
		MFCC: make([]float64, cfg.MFCCCoefficients),
	}

	sa := analyzers.NewSpectralAnalyzer(buffer.SampleRate)
	spec, stftErr := sa.ComputeSTFT(buffer.Samples, cfg.WindowSize, cfg.HopSize, analyzers.WindowHann)
	if stftErr != nil {
		logger.Warn("STFT failed", logging.Fields{"error": stftErr.Error()})
	}
	withSpec := func(fn func(*analyzers.SpectrogramResult) error) func() error {
		return func() error {
			if spec == nil {
				return fmt.Errorf("%w: %v", errNoSpectrogram, stftErr)
			}
			return fn(spec)
		}
	}

	e.run(fs, logger, KeyMFCC, withSpec(func(spec *analyzers.SpectrogramResult) error {
		mfcc, err := sa.ComputeMFCC(spec, analyzers.MFCCConfig{
			Coefficients: cfg.MFCCCoefficients,
			MelBands:     cfg.MelBands,
			TopDB:        cfg.TopDB,
		})
		if err != nil {
			return err
		}
		fs.MFCC = analyzers.RowMeans(mfcc)
		return nil
	}))

	var descriptors *analyzers.FrameDescriptors
	describe := func(key string, pick func(*analyzers.FrameDescriptors) []float64, dst *float64) {
		e.run(fs, logger, key, withSpec(func(spec *analyzers.SpectrogramResult) error {
			if descriptors == nil {
				descriptors = sa.ComputeFrameDescriptors(spec, cfg.RolloffPercent)
			}
			*dst = analyzers.SafeMean(pick(descriptors))
			return nil
		}))
	}
	describe(KeySpectralCentroid, func(d *analyzers.FrameDescriptors) []float64 { return d.Centroid }, &fs.SpectralCentroid)
	describe(KeySpectralBandwidth, func(d *analyzers.FrameDescriptors) []float64 { return d.Bandwidth }, &fs.SpectralBandwidth)
	describe(KeySpectralRolloff, func(d *analyzers.FrameDescriptors) []float64 { return d.Rolloff }, &fs.SpectralRolloff)

	e.run(fs, logger, KeySpectralContrast, withSpec(func(spec *analyzers.SpectrogramResult) error {
		contrast, err := sa.ComputeSpectralContrast(spec, analyzers.ContrastConfig{
			Bands:    cfg.ContrastBands,
			FMin:     cfg.ContrastFMin,
			Quantile: cfg.ContrastQuantile,
			TopDB:    cfg.TopDB,
		})
		if err != nil {
			return err
		}
		fs.SpectralContrastBands = analyzers.RowMeans(contrast)
		fs.SpectralContrast = analyzers.SafeMean(fs.SpectralContrastBands)
		return nil
	}))

	e.run(fs, logger, KeyRMSEnergy, func() error {
		rms, err := analyzers.ComputeRMS(buffer.Samples, cfg.WindowSize, cfg.HopSize)
		if err != nil {
			return err
		}
		fs.RMSEnergy = analyzers.SafeMean(rms)
		return nil
	})

	e.run(fs, logger, KeyZeroCrossingRate, func() error {
		zcr, err := analyzers.ComputeZCR(buffer.Samples, cfg.WindowSize, cfg.HopSize)
		if err != nil {
			return err
		}
		fs.ZeroCrossingRate = analyzers.SafeMean(zcr)
		return nil
	})

	e.extractPitch(ctx, fs, logger, buffer, path)

	logger.Debug("Feature extraction completed", logging.Fields{
		"failures":    len(fs.Failures),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return fs, nil
}

// extractPitch estimates the F0 contour on the native-rate signal and derives
// the voice quality measures from it.
func (e *Extractor) extractPitch(ctx context.Context, fs *FeatureSet, logger logging.Logger, buffer *common.AudioBuffer, path string) {
	var (
		signal []float64
		rate   int
		track  *pitch.PitchTrack
	)

	e.run(fs, logger, KeyMeanPitch, func() error {
		if e.config.Pitch.ReuseBuffer {
			signal, rate = buffer.Samples, buffer.SampleRate
		} else {
			native, err := e.decoder.DecodeNativeContext(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to re-decode audio: %w", err)
			}
			signal, rate = native.Samples, native.SampleRate
		}

		t, err := pitch.Estimate(signal, rate, pitch.OptionsFromConfig(e.config.Pitch))
		if err != nil {
			return err
		}
		track = t
		fs.MeanPitch = track.MeanVoiced()
		return nil
	})

	if e.voiceQuality == nil {
		return
	}

	var vq pitch.VoiceQuality
	measureErr := e.run(fs, logger, KeyJitter, func() error {
		if track == nil {
			return errors.New("pitch track unavailable")
		}
		var err error
		vq, err = e.voiceQuality.Measure(signal, rate, track)
		return err
	})
	if measureErr != nil {
		// shimmer and HNR come from the same measurement
		fs.fail(KeyShimmer, measureErr)
		fs.fail(KeyHNR, measureErr)
		return
	}

	fs.Jitter = finiteOrZero(vq.Jitter)
	fs.Shimmer = finiteOrZero(vq.Shimmer)
	fs.HNR = finiteOrZero(vq.HNR)
}

// run executes one sub-feature. Errors and panics are logged and recorded
// against key; the returned error is nil on success.
func (e *Extractor) run(fs *FeatureSet, logger logging.Logger, key string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.Warn("Feature extraction failed, reporting 0", logging.Fields{
				"feature": key,
				"error":   err.Error(),
			})
			fs.fail(key, err)
		}
	}()
	return fn()
}

func finiteOrZero(v float64) float64 {
	if !analyzers.Finite(v) {
		return 0
	}
	return v
}
