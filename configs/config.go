package configs

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/voice-features/pkg/audio/config"
	"github.com/RyanBlaney/voice-features/pkg/audio/decode"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/pitch"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// EnvPrefix prefixes every environment override, e.g. VOICE_FEATURES_PITCH_F0_FLOOR
const EnvPrefix = "VOICE_FEATURES"

// EnvKeyReplacer maps configuration keys to environment variable suffixes
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_", ".", "_")
}

// OutputFormats lists the accepted values of output_format
var OutputFormats = []string{"table", "json", "yaml", "csv"}

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	Decode   DecodeConfig   `mapstructure:"decode" yaml:"decode"`
	Features FeaturesConfig `mapstructure:"features" yaml:"features"`
	Pitch    PitchConfig    `mapstructure:"pitch" yaml:"pitch"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
}

// DecodeConfig contains decoder settings
type DecodeConfig struct {
	TargetSampleRate int    `mapstructure:"target_sample_rate" yaml:"target_sample_rate"`
	ConverterPath    string `mapstructure:"converter_path" yaml:"converter_path"`
	TempDir          string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// FeaturesConfig contains the spectral analysis parameters
type FeaturesConfig struct {
	WindowSize       int     `mapstructure:"window_size" yaml:"window_size"`
	HopSize          int     `mapstructure:"hop_size" yaml:"hop_size"`
	MFCCCoefficients int     `mapstructure:"mfcc_coefficients" yaml:"mfcc_coefficients"`
	MelBands         int     `mapstructure:"mel_bands" yaml:"mel_bands"`
	RolloffPercent   float64 `mapstructure:"rolloff_percent" yaml:"rolloff_percent"`
	ContrastBands    int     `mapstructure:"contrast_bands" yaml:"contrast_bands"`
	ContrastFMin     float64 `mapstructure:"contrast_fmin" yaml:"contrast_fmin"`
	ContrastQuantile float64 `mapstructure:"contrast_quantile" yaml:"contrast_quantile"`
	TopDB            float64 `mapstructure:"top_db" yaml:"top_db"`
	VoiceQuality     bool    `mapstructure:"voice_quality" yaml:"voice_quality"`

	// VoiceQualityProvider is "periodicity" or "sonar"
	VoiceQualityProvider string `mapstructure:"voice_quality_provider" yaml:"voice_quality_provider"`
}

// PitchConfig contains the F0 estimator settings
type PitchConfig struct {
	FramePeriod      float64 `mapstructure:"frame_period" yaml:"frame_period"`
	F0Floor          float64 `mapstructure:"f0_floor" yaml:"f0_floor"`
	F0Ceil           float64 `mapstructure:"f0_ceil" yaml:"f0_ceil"`
	ChannelsInOctave float64 `mapstructure:"channels_in_octave" yaml:"channels_in_octave"`
	AllowedRange     float64 `mapstructure:"allowed_range" yaml:"allowed_range"`
	ReuseBuffer      bool    `mapstructure:"reuse_buffer" yaml:"reuse_buffer"`
}

// BatchConfig contains multi-file execution settings
type BatchConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"` // 0 disables
	FailFast       bool          `mapstructure:"fail_fast" yaml:"fail_fast"`
}

// LoadConfig loads configuration from v, or from the global viper when v is nil
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return cfg, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.LogFormat != "" && cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return fmt.Errorf("log format must be console or json, got %q", cfg.LogFormat)
	}

	if !slices.Contains(OutputFormats, cfg.OutputFormat) {
		return fmt.Errorf("output format must be one of %v, got %q", OutputFormats, cfg.OutputFormat)
	}

	if err := cfg.DecoderConfig().Validate(); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if err := cfg.FeatureConfig().Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}

	if cfg.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch max concurrency must be positive")
	}

	if cfg.Batch.Timeout < 0 {
		return fmt.Errorf("batch timeout cannot be negative")
	}

	return nil
}

// LoggingOptions returns the logger settings. Verbose forces debug level.
func (c *Config) LoggingOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.Options{}, err
	}
	if c.Verbose {
		level = logging.DebugLevel
	}
	return logging.Options{Level: level, Format: c.LogFormat}, nil
}

// DecoderConfig maps the decode section onto the decoder's settings
func (c *Config) DecoderConfig() *decode.Config {
	return &decode.Config{
		TargetSampleRate: c.Decode.TargetSampleRate,
		ConverterPath:    c.Decode.ConverterPath,
		TempDir:          c.Decode.TempDir,
	}
}

// FeatureConfig maps the features and pitch sections onto the extractor's settings
func (c *Config) FeatureConfig() *config.FeatureConfig {
	return &config.FeatureConfig{
		WindowSize:         c.Features.WindowSize,
		HopSize:            c.Features.HopSize,
		TopDB:              c.Features.TopDB,
		MFCCCoefficients:   c.Features.MFCCCoefficients,
		MelBands:           c.Features.MelBands,
		RolloffPercent:     c.Features.RolloffPercent,
		ContrastBands:      c.Features.ContrastBands,
		ContrastFMin:       c.Features.ContrastFMin,
		ContrastQuantile:   c.Features.ContrastQuantile,
		EnableVoiceQuality:   c.Features.VoiceQuality,
		VoiceQualityProvider: c.Features.VoiceQualityProvider,
		Pitch: config.PitchConfig{
			FramePeriod:      c.Pitch.FramePeriod,
			F0Floor:          c.Pitch.F0Floor,
			F0Ceil:           c.Pitch.F0Ceil,
			ChannelsInOctave: c.Pitch.ChannelsInOctave,
			AllowedRange:     c.Pitch.AllowedRange,
			ReuseBuffer:      c.Pitch.ReuseBuffer,
		},
	}
}

// DIOOptions returns the pitch estimator options
func (c *Config) DIOOptions() pitch.DIOOptions {
	return pitch.OptionsFromConfig(c.FeatureConfig().Pitch)
}
