package pitch

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-sonar/algorithms/speech"

	"github.com/RyanBlaney/voice-features/pkg/audio/features/analyzers"
)

// Voice quality provider names accepted by NewVoiceQualityProvider
const (
	ProviderPeriodicity = "periodicity"
	ProviderSonar       = "sonar"
)

// NewVoiceQualityProvider returns the provider registered under name.
// An empty name selects the periodicity analyzer.
func NewVoiceQualityProvider(name string) (VoiceQualityProvider, error) {
	switch name {
	case "", ProviderPeriodicity:
		return NewPeriodicityAnalyzer(), nil
	case ProviderSonar:
		return NewSonarVoiceQuality(), nil
	default:
		return nil, fmt.Errorf("unknown voice quality provider: %q", name)
	}
}

// SonarVoiceQuality measures jitter, shimmer and HNR with the sonar speech
// analyzer. It runs its own autocorrelation pitch detector over 1024-sample
// frames in [50, 500] Hz, so the WORLD track only gates whether the signal
// is voiced at all.
type SonarVoiceQuality struct{}

// NewSonarVoiceQuality returns the sonar-backed provider
func NewSonarVoiceQuality() *SonarVoiceQuality {
	return &SonarVoiceQuality{}
}

func (s *SonarVoiceQuality) Name() string { return ProviderSonar }

// Measure returns zeros when fewer than two frames of track are voiced. Sonar
// reports perturbation in percent; the result is scaled to the relative
// measures the periodicity analyzer returns.
func (s *SonarVoiceQuality) Measure(x []float64, fs int, track *PitchTrack) (VoiceQuality, error) {
	if fs <= 0 {
		return VoiceQuality{}, fmt.Errorf("invalid sample rate %d", fs)
	}
	if track == nil || len(track.F0) != len(track.TemporalPositions) {
		return VoiceQuality{}, fmt.Errorf("malformed pitch track")
	}
	if len(x) == 0 || track.VoicedCount() < 2 {
		return VoiceQuality{}, nil
	}

	res, err := speech.NewVoiceQualityAnalyzer(fs).AnalyzeVoiceQuality(x)
	if err != nil {
		return VoiceQuality{}, fmt.Errorf("sonar voice quality: %w", err)
	}

	vq := VoiceQuality{
		Jitter:  res.Jitter / 100,
		Shimmer: res.Shimmer / 100,
		HNR:     math.Max(MinHNR, math.Min(MaxHNR, res.HNR)),
	}
	if !analyzers.Finite(vq.Jitter) || !analyzers.Finite(vq.Shimmer) || !analyzers.Finite(vq.HNR) {
		return VoiceQuality{}, fmt.Errorf("sonar voice quality returned non-finite values")
	}
	return vq, nil
}
