package pitch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/voice-features/pkg/audio/features/analyzers"
)

// VoiceQuality holds cycle-to-cycle perturbation and noise measures
type VoiceQuality struct {
	Jitter  float64 `json:"jitter"`  // relative mean absolute period difference
	Shimmer float64 `json:"shimmer"` // relative mean absolute amplitude difference
	HNR     float64 `json:"hnr"`     // dB
}

// VoiceQualityProvider measures voice quality from a signal and its refined pitch track
type VoiceQualityProvider interface {
	Name() string
	Measure(x []float64, fs int, track *PitchTrack) (VoiceQuality, error)
}

// HNR is clamped to this range
const (
	MinHNR = -20.0
	MaxHNR = 60.0
)

// PeriodicityAnalyzer derives local jitter and shimmer from consecutive voiced frames
// and the harmonic-to-noise ratio from the normalized autocorrelation at the pitch lag.
type PeriodicityAnalyzer struct {
	// HNRPeriods is the analysis span of the autocorrelation in periods
	HNRPeriods float64
}

// NewPeriodicityAnalyzer returns the default voice quality provider
func NewPeriodicityAnalyzer() *PeriodicityAnalyzer {
	return &PeriodicityAnalyzer{HNRPeriods: 3}
}

func (pa *PeriodicityAnalyzer) Name() string { return ProviderPeriodicity }

// Measure returns zeros when fewer than two frames are voiced
func (pa *PeriodicityAnalyzer) Measure(x []float64, fs int, track *PitchTrack) (VoiceQuality, error) {
	if fs <= 0 {
		return VoiceQuality{}, fmt.Errorf("invalid sample rate %d", fs)
	}
	if track == nil || len(track.F0) != len(track.TemporalPositions) {
		return VoiceQuality{}, fmt.Errorf("malformed pitch track")
	}
	if len(x) == 0 || track.VoicedCount() < 2 {
		return VoiceQuality{}, nil
	}

	sampleRate := float64(fs)
	periods := make([]float64, 0, len(track.F0))
	amplitudes := make([]float64, 0, len(track.F0))
	hnr := make([]float64, 0, len(track.F0))
	var periodDiffs, amplitudeDiffs []float64

	prevVoiced := false
	var prevPeriod, prevAmplitude float64
	for i, f0 := range track.F0 {
		if f0 <= 0 {
			prevVoiced = false
			continue
		}

		period := 1 / f0
		center := int(math.Round(track.TemporalPositions[i] * sampleRate))
		amplitude := peakAmplitude(x, center, int(math.Round(sampleRate*period)))

		periods = append(periods, period)
		amplitudes = append(amplitudes, amplitude)
		if prevVoiced {
			periodDiffs = append(periodDiffs, math.Abs(period-prevPeriod))
			amplitudeDiffs = append(amplitudeDiffs, math.Abs(amplitude-prevAmplitude))
		}

		if r, ok := pa.periodicity(x, center, sampleRate/f0); ok {
			hnr = append(hnr, harmonicToNoise(r))
		}

		prevVoiced = true
		prevPeriod, prevAmplitude = period, amplitude
	}

	vq := VoiceQuality{HNR: analyzers.SafeMean(hnr)}
	if meanPeriod := analyzers.SafeMean(periods); meanPeriod > 0 {
		vq.Jitter = analyzers.SafeMean(periodDiffs) / meanPeriod
	}
	if meanAmplitude := analyzers.SafeMean(amplitudes); meanAmplitude > 0 {
		vq.Shimmer = analyzers.SafeMean(amplitudeDiffs) / meanAmplitude
	}
	return vq, nil
}

// peakAmplitude is the largest absolute sample within one period centered on center
func peakAmplitude(x []float64, center, period int) float64 {
	lo := max(0, center-period/2)
	hi := min(len(x), center+period/2+1)
	if lo >= hi {
		return 0
	}
	return math.Max(floats.Max(x[lo:hi]), -floats.Min(x[lo:hi]))
}

// periodicity returns the normalized autocorrelation at the pitch lag
func (pa *PeriodicityAnalyzer) periodicity(x []float64, center int, periodSamples float64) (float64, bool) {
	lag := int(math.Round(periodSamples))
	span := int(math.Round(pa.HNRPeriods * periodSamples))
	if lag <= 0 || span <= lag {
		return 0, false
	}

	lo := max(0, center-span/2)
	hi := min(len(x), center+span/2+1)
	if hi-lo <= lag {
		return 0, false
	}

	a := x[lo : hi-lag]
	b := x[lo+lag : hi]
	energy := floats.Dot(a, a) * floats.Dot(b, b)
	if energy <= 0 {
		return 0, false
	}
	return floats.Dot(a, b) / math.Sqrt(energy), true
}

func harmonicToNoise(r float64) float64 {
	if r <= 0 {
		return MinHNR
	}
	if r >= 1 {
		return MaxHNR
	}
	return math.Max(MinHNR, math.Min(MaxHNR, 10*math.Log10(r/(1-r))))
}
