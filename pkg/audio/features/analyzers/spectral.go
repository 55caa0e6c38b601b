package analyzers

import "math"

// FrameDescriptors holds per-frame spectral shape descriptors
type FrameDescriptors struct {
	Centroid  []float64 `json:"centroid"`
	Bandwidth []float64 `json:"bandwidth"`
	Rolloff   []float64 `json:"rolloff"`
}

// ComputeFrameDescriptors evaluates centroid, bandwidth and rolloff on every frame
func (sa *SpectralAnalyzer) ComputeFrameDescriptors(spec *SpectrogramResult, rollPercent float64) *FrameDescriptors {
	freqs := sa.GetFrequencyBins(spec.WindowSize)

	d := &FrameDescriptors{
		Centroid:  make([]float64, spec.TimeFrames),
		Bandwidth: make([]float64, spec.TimeFrames),
		Rolloff:   make([]float64, spec.TimeFrames),
	}

	for t, frame := range spec.Magnitude {
		centroid := SpectralCentroid(frame, freqs)
		d.Centroid[t] = centroid
		d.Bandwidth[t] = SpectralBandwidth(frame, freqs, centroid)
		d.Rolloff[t] = SpectralRolloff(frame, freqs, rollPercent)
	}

	return d
}

// SpectralCentroid computes the magnitude-weighted mean frequency.
// A frame with no energy reports 0.
func SpectralCentroid(spectrum, freqs []float64) float64 {
	if len(spectrum) != len(freqs) {
		return 0
	}

	numerator := 0.0
	denominator := 0.0
	for i, m := range spectrum {
		numerator += freqs[i] * m
		denominator += m
	}

	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// SpectralBandwidth computes the second-order spread around centroid
// using the unit-sum normalized magnitude spectrum as weights.
func SpectralBandwidth(spectrum, freqs []float64, centroid float64) float64 {
	if len(spectrum) != len(freqs) {
		return 0
	}

	total := 0.0
	for _, m := range spectrum {
		total += m
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i, m := range spectrum {
		diff := freqs[i] - centroid
		sum += (m / total) * diff * diff
	}
	return math.Sqrt(sum)
}

// SpectralRolloff returns the lowest bin frequency at which the cumulative
// magnitude reaches rollPercent of the frame total.
func SpectralRolloff(spectrum, freqs []float64, rollPercent float64) float64 {
	if len(spectrum) == 0 || len(spectrum) != len(freqs) {
		return 0
	}

	total := 0.0
	for _, m := range spectrum {
		total += m
	}

	threshold := rollPercent * total
	cumulative := 0.0
	for i, m := range spectrum {
		cumulative += m
		if cumulative >= threshold {
			return freqs[i]
		}
	}

	return freqs[len(freqs)-1]
}
