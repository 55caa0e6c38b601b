package decode

import "fmt"

// DefaultTargetSampleRate is the canonical analysis rate
const DefaultTargetSampleRate = 16000

// Config holds decoder settings
type Config struct {
	// TargetSampleRate is the rate every decoded buffer is resampled to
	TargetSampleRate int `json:"target_sample_rate"`

	// ConverterPath is the ffmpeg binary used for containers without a native decoder
	ConverterPath string `json:"converter_path"`

	// TempDir is where converter intermediates are created ("" uses the OS default)
	TempDir string `json:"temp_dir"`
}

// DefaultConfig returns the decoder defaults
func DefaultConfig() *Config {
	return &Config{
		TargetSampleRate: DefaultTargetSampleRate,
		ConverterPath:    "ffmpeg",
	}
}

// Validate checks the config values
func (c *Config) Validate() error {
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive, got %d", c.TargetSampleRate)
	}
	if c.ConverterPath == "" {
		return fmt.Errorf("converter path must not be empty")
	}
	return nil
}
