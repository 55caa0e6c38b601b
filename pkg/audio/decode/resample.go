package decode

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono samples between rates
type Resampler interface {
	Resample(samples []float64, fromRate, toRate int) ([]float64, error)
}

// BandLimitedResampler wraps the pure Go soxr port at its high quality preset
type BandLimitedResampler struct{}

// NewResampler creates the default band-limited resampler
func NewResampler() *BandLimitedResampler {
	return &BandLimitedResampler{}
}

// Resample returns exactly round(len(samples) * toRate / fromRate) samples.
// Equal rates return a copy of the input.
func (r *BandLimitedResampler) Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates: %d -> %d", fromRate, toRate)
	}

	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	if len(samples) == 0 {
		return []float64{}, nil
	}

	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	// Trailing silence pushes the filter tail out of the resampler
	padded := make([]float64, len(samples)+fromRate/10+64)
	copy(padded, samples)

	output, err := resampler.Process(padded)
	if err != nil {
		return nil, fmt.Errorf("failed to resample %d -> %d: %w", fromRate, toRate, err)
	}

	expected := int(math.Round(float64(len(samples)) * float64(toRate) / float64(fromRate)))
	out := make([]float64, expected)
	copy(out, output)
	return out, nil
}
