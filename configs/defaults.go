package configs

import (
	"github.com/spf13/viper"

	"github.com/RyanBlaney/voice-features/pkg/audio/config"
	"github.com/RyanBlaney/voice-features/pkg/audio/decode"
)

// SetDefaults registers a default for every configuration key
func SetDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	// Application defaults
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("output_format", d.OutputFormat)

	// Decoder defaults
	v.SetDefault("decode.target_sample_rate", d.Decode.TargetSampleRate)
	v.SetDefault("decode.converter_path", d.Decode.ConverterPath)
	v.SetDefault("decode.temp_dir", d.Decode.TempDir)

	// Analysis defaults
	v.SetDefault("features.window_size", d.Features.WindowSize)
	v.SetDefault("features.hop_size", d.Features.HopSize)
	v.SetDefault("features.mfcc_coefficients", d.Features.MFCCCoefficients)
	v.SetDefault("features.mel_bands", d.Features.MelBands)
	v.SetDefault("features.rolloff_percent", d.Features.RolloffPercent)
	v.SetDefault("features.contrast_bands", d.Features.ContrastBands)
	v.SetDefault("features.contrast_fmin", d.Features.ContrastFMin)
	v.SetDefault("features.contrast_quantile", d.Features.ContrastQuantile)
	v.SetDefault("features.top_db", d.Features.TopDB)
	v.SetDefault("features.voice_quality", d.Features.VoiceQuality)
	v.SetDefault("features.voice_quality_provider", d.Features.VoiceQualityProvider)

	// Pitch defaults
	v.SetDefault("pitch.frame_period", d.Pitch.FramePeriod)
	v.SetDefault("pitch.f0_floor", d.Pitch.F0Floor)
	v.SetDefault("pitch.f0_ceil", d.Pitch.F0Ceil)
	v.SetDefault("pitch.channels_in_octave", d.Pitch.ChannelsInOctave)
	v.SetDefault("pitch.allowed_range", d.Pitch.AllowedRange)
	v.SetDefault("pitch.reuse_buffer", d.Pitch.ReuseBuffer)

	// Batch defaults
	v.SetDefault("batch.max_concurrency", d.Batch.MaxConcurrency)
	v.SetDefault("batch.timeout", d.Batch.Timeout)
	v.SetDefault("batch.fail_fast", d.Batch.FailFast)
}

// GetDefaultConfig returns the configuration used when nothing is overridden
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		LogFormat:    "console",
		OutputFormat: "table",
		Decode:       GetDefaultDecodeConfig(),
		Features:     GetDefaultFeaturesConfig(),
		Pitch:        GetDefaultPitchConfig(),
		Batch:        GetDefaultBatchConfig(),
	}
}

// GetDefaultDecodeConfig returns the decoder defaults
func GetDefaultDecodeConfig() DecodeConfig {
	d := decode.DefaultConfig()
	return DecodeConfig{
		TargetSampleRate: d.TargetSampleRate,
		ConverterPath:    d.ConverterPath,
		TempDir:          d.TempDir,
	}
}

// GetDefaultFeaturesConfig returns the analysis defaults
func GetDefaultFeaturesConfig() FeaturesConfig {
	f := config.DefaultFeatureConfig()
	return FeaturesConfig{
		WindowSize:       f.WindowSize,
		HopSize:          f.HopSize,
		MFCCCoefficients: f.MFCCCoefficients,
		MelBands:         f.MelBands,
		RolloffPercent:   f.RolloffPercent,
		ContrastBands:    f.ContrastBands,
		ContrastFMin:     f.ContrastFMin,
		ContrastQuantile: f.ContrastQuantile,
		TopDB:            f.TopDB,
		VoiceQuality:     f.EnableVoiceQuality,

		VoiceQualityProvider: f.VoiceQualityProvider,
	}
}

// GetDefaultPitchConfig returns the pitch estimator defaults
func GetDefaultPitchConfig() PitchConfig {
	p := config.DefaultPitchConfig()
	return PitchConfig{
		FramePeriod:      p.FramePeriod,
		F0Floor:          p.F0Floor,
		F0Ceil:           p.F0Ceil,
		ChannelsInOctave: p.ChannelsInOctave,
		AllowedRange:     p.AllowedRange,
		ReuseBuffer:      p.ReuseBuffer,
	}
}

// GetDefaultBatchConfig returns the batch defaults
func GetDefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		FailFast:       false,
	}
}
