package config

import "fmt"

// FeatureConfig holds the analysis parameters of the feature extractor
type FeatureConfig struct {
	// Spectral Analysis
	WindowSize int     `json:"window_size"`
	HopSize    int     `json:"hop_size"`
	TopDB      float64 `json:"top_db"`

	// Cepstral parameters
	MFCCCoefficients int `json:"mfcc_coefficients"`
	MelBands         int `json:"mel_bands"`

	// Spectral shape parameters
	RolloffPercent   float64 `json:"rolloff_percent"`
	ContrastBands    int     `json:"contrast_bands"`
	ContrastFMin     float64 `json:"contrast_fmin"`
	ContrastQuantile float64 `json:"contrast_quantile"`

	// Feature Selection
	EnableVoiceQuality bool `json:"enable_voice_quality"`

	// VoiceQualityProvider names the jitter/shimmer/HNR backend: "periodicity" or "sonar"
	VoiceQualityProvider string `json:"voice_quality_provider"`

	Pitch PitchConfig `json:"pitch"`
}

// PitchConfig holds the F0 estimator parameters
type PitchConfig struct {
	FramePeriod      float64 `json:"frame_period"` // milliseconds
	F0Floor          float64 `json:"f0_floor"`
	F0Ceil           float64 `json:"f0_ceil"`
	ChannelsInOctave float64 `json:"channels_in_octave"`
	AllowedRange     float64 `json:"allowed_range"`

	// ReuseBuffer estimates pitch on the supplied buffer instead of re-reading the file
	ReuseBuffer bool `json:"reuse_buffer"`
}

// DefaultFeatureConfig returns the reference analysis parameters
func DefaultFeatureConfig() *FeatureConfig {
	return &FeatureConfig{
		WindowSize:         2048,
		HopSize:            512,
		TopDB:              80,
		MFCCCoefficients:   13,
		MelBands:           128,
		RolloffPercent:     0.85,
		ContrastBands:      6,
		ContrastFMin:       200,
		ContrastQuantile:   0.02,
		EnableVoiceQuality:   true,
		VoiceQualityProvider: "periodicity",
		Pitch:                DefaultPitchConfig(),
	}
}

// DefaultPitchConfig returns the DIO defaults
func DefaultPitchConfig() PitchConfig {
	return PitchConfig{
		FramePeriod:      5.0,
		F0Floor:          71.0,
		F0Ceil:           800.0,
		ChannelsInOctave: 2.0,
		AllowedRange:     0.1,
	}
}

// Validate checks the parameters are usable
func (c *FeatureConfig) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive, got %d", c.HopSize)
	}
	if c.MFCCCoefficients <= 0 || c.MFCCCoefficients > c.MelBands {
		return fmt.Errorf("mfcc coefficients must be in [1, %d], got %d", c.MelBands, c.MFCCCoefficients)
	}
	if c.RolloffPercent <= 0 || c.RolloffPercent >= 1 {
		return fmt.Errorf("rolloff percent must be in (0, 1), got %g", c.RolloffPercent)
	}
	if c.ContrastBands <= 0 {
		return fmt.Errorf("contrast bands must be positive, got %d", c.ContrastBands)
	}
	if c.ContrastFMin <= 0 {
		return fmt.Errorf("contrast fmin must be positive, got %g", c.ContrastFMin)
	}
	if c.ContrastQuantile <= 0 || c.ContrastQuantile >= 1 {
		return fmt.Errorf("contrast quantile must be in (0, 1), got %g", c.ContrastQuantile)
	}
	if c.TopDB < 0 {
		return fmt.Errorf("top_db must not be negative, got %g", c.TopDB)
	}
	switch c.VoiceQualityProvider {
	case "", "periodicity", "sonar":
	default:
		return fmt.Errorf("unknown voice quality provider: %q", c.VoiceQualityProvider)
	}
	return c.Pitch.Validate()
}

// Validate checks the pitch parameters
func (p PitchConfig) Validate() error {
	if p.FramePeriod <= 0 {
		return fmt.Errorf("pitch frame period must be positive, got %g", p.FramePeriod)
	}
	if p.F0Floor <= 0 || p.F0Ceil <= p.F0Floor {
		return fmt.Errorf("pitch range must satisfy 0 < floor < ceil, got [%g, %g]", p.F0Floor, p.F0Ceil)
	}
	if p.ChannelsInOctave <= 0 {
		return fmt.Errorf("channels in octave must be positive, got %g", p.ChannelsInOctave)
	}
	if p.AllowedRange <= 0 {
		return fmt.Errorf("allowed range must be positive, got %g", p.AllowedRange)
	}
	return nil
}
