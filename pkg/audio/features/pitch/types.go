package pitch

import (
	"github.com/RyanBlaney/voice-features/pkg/audio/config"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/analyzers"
)

// PitchTrack is a frame-wise fundamental frequency contour. Unvoiced frames hold 0.
type PitchTrack struct {
	F0                []float64 `json:"f0"`
	TemporalPositions []float64 `json:"temporal_positions"` // seconds
	FramePeriod       float64   `json:"frame_period"`       // milliseconds
	SampleRate        int       `json:"sample_rate"`
}

// Len returns the number of frames
func (p *PitchTrack) Len() int {
	if p == nil {
		return 0
	}
	return len(p.F0)
}

// VoicedCount returns the number of frames with a positive F0
func (p *PitchTrack) VoicedCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, f := range p.F0 {
		if f > 0 {
			n++
		}
	}
	return n
}

// MeanVoiced returns the mean F0 of voiced frames, or 0 when nothing is voiced
func (p *PitchTrack) MeanVoiced() float64 {
	if p == nil {
		return 0
	}
	voiced := make([]float64, 0, len(p.F0))
	for _, f := range p.F0 {
		if f > 0 {
			voiced = append(voiced, f)
		}
	}
	return analyzers.SafeMean(voiced)
}

// Clone returns a deep copy
func (p *PitchTrack) Clone() *PitchTrack {
	if p == nil {
		return nil
	}
	return &PitchTrack{
		F0:                append([]float64(nil), p.F0...),
		TemporalPositions: append([]float64(nil), p.TemporalPositions...),
		FramePeriod:       p.FramePeriod,
		SampleRate:        p.SampleRate,
	}
}

// DIOOptions holds the coarse estimator parameters
type DIOOptions struct {
	F0Floor          float64 // Hz
	F0Ceil           float64 // Hz
	ChannelsInOctave float64
	FramePeriod      float64 // milliseconds
	AllowedRange     float64 // relative jump tolerated between frames
}

// DefaultDIOOptions returns the standard DIO parameters
func DefaultDIOOptions() DIOOptions {
	return OptionsFromConfig(config.DefaultPitchConfig())
}

// OptionsFromConfig maps the feature configuration onto estimator options
func OptionsFromConfig(c config.PitchConfig) DIOOptions {
	return DIOOptions{
		F0Floor:          c.F0Floor,
		F0Ceil:           c.F0Ceil,
		ChannelsInOctave: c.ChannelsInOctave,
		FramePeriod:      c.FramePeriod,
		AllowedRange:     c.AllowedRange,
	}
}

// Validate reports unusable options
func (o DIOOptions) Validate() error {
	return config.PitchConfig{
		F0Floor:          o.F0Floor,
		F0Ceil:           o.F0Ceil,
		ChannelsInOctave: o.ChannelsInOctave,
		FramePeriod:      o.FramePeriod,
		AllowedRange:     o.AllowedRange,
	}.Validate()
}
