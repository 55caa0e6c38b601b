package decode

import (
	"context"
	"os"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// Decoder turns audio files into mono AudioBuffers
type Decoder struct {
	config    *Config
	factory   *Factory
	resampler Resampler
	logger    logging.Logger
}

// Option customizes a Decoder
type Option func(*Decoder)

// WithFactory replaces the format registry
func WithFactory(f *Factory) Option {
	return func(d *Decoder) { d.factory = f }
}

// WithResampler replaces the band-limited resampler
func WithResampler(r Resampler) Option {
	return func(d *Decoder) { d.resampler = r }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// NewDecoder creates a decoder; a nil config uses DefaultConfig
func NewDecoder(cfg *Config, opts ...Option) (*Decoder, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{
		config:    cfg,
		resampler: NewResampler(),
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.factory == nil {
		d.factory = NewFactory(cfg)
	}

	return d, nil
}

// File decodes path with the default configuration
func File(path string) (*common.AudioBuffer, error) {
	d, err := NewDecoder(nil)
	if err != nil {
		return nil, err
	}
	return d.Decode(path)
}

// Decode returns the file as mono samples at the target sample rate
func (d *Decoder) Decode(path string) (*common.AudioBuffer, error) {
	return d.DecodeContext(context.Background(), path)
}

// DecodeNative returns the file as mono samples at its own sample rate
func (d *Decoder) DecodeNative(path string) (*common.AudioBuffer, error) {
	return d.DecodeNativeContext(context.Background(), path)
}

// DecodeContext is Decode with cancellation
func (d *Decoder) DecodeContext(ctx context.Context, path string) (*common.AudioBuffer, error) {
	buf, err := d.DecodeNativeContext(ctx, path)
	if err != nil {
		return nil, err
	}

	target := d.config.TargetSampleRate
	if buf.SampleRate == target {
		return buf, nil
	}

	resampled, err := d.resampler.Resample(buf.Samples, buf.SampleRate, target)
	if err != nil {
		return nil, common.NewAudioError(buf.Format, path, common.ErrCodeCorruptAudio,
			"failed to resample audio", err)
	}
	if len(resampled) == 0 {
		return nil, common.NewAudioError(buf.Format, path, common.ErrCodeCorruptAudio,
			"resampling produced no samples", nil)
	}

	d.logger.Debug("Resampled audio", logging.Fields{
		"path":        path,
		"from_rate":   buf.SampleRate,
		"to_rate":     target,
		"samples_in":  len(buf.Samples),
		"samples_out": len(resampled),
	})

	buf.Samples = resampled
	buf.SampleRate = target
	return buf, nil
}

// DecodeNativeContext is DecodeNative with cancellation
func (d *Decoder) DecodeNativeContext(ctx context.Context, path string) (*common.AudioBuffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, common.NewAudioError(common.FormatUnsupported, path, common.ErrCodeIO, "cannot open file", err)
	}
	if info.IsDir() {
		return nil, common.NewAudioError(common.FormatUnsupported, path, common.ErrCodeIO, "path is a directory", nil)
	}

	formatDecoder, err := d.factory.DetectAndCreate(path)
	if err != nil {
		return nil, err
	}

	raw, err := formatDecoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}

	if raw.SampleRate <= 0 {
		return nil, common.NewAudioError(raw.Format, path, common.ErrCodeCorruptAudio,
			"decoder reported no sample rate", nil)
	}
	if raw.Frames() == 0 {
		return nil, common.NewAudioError(raw.Format, path, common.ErrCodeCorruptAudio,
			"decoding produced zero samples", nil)
	}

	mono := common.Downmix(raw.Channels)

	d.logger.Debug("Decoded audio", logging.Fields{
		"path":        path,
		"format":      string(raw.Format),
		"sample_rate": raw.SampleRate,
		"channels":    len(raw.Channels),
		"samples":     len(mono),
	})

	return &common.AudioBuffer{
		Samples:          mono,
		SampleRate:       raw.SampleRate,
		Path:             path,
		Format:           raw.Format,
		SourceSampleRate: raw.SampleRate,
		DecodedChannels:  len(raw.Channels),
	}, nil
}

// Config returns the decoder configuration
func (d *Decoder) Config() Config {
	return *d.config
}
