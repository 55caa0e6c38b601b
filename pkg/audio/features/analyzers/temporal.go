package analyzers

import (
	"fmt"
	"math"
)

// ZeroCrossingThreshold is the magnitude below which a sample counts as non-negative
const ZeroCrossingThreshold = 1e-10

// ComputeRMS returns the root mean square energy of every centered frame.
// Frames are zero padded by windowSize/2 at both ends.
func ComputeRMS(signal []float64, windowSize, hopSize int) ([]float64, error) {
	if err := checkFraming(signal, windowSize, hopSize); err != nil {
		return nil, err
	}

	pad := windowSize / 2
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)

	frames := FrameCount(len(signal), windowSize, hopSize)
	rms := make([]float64, frames)
	for t := range frames {
		start := t * hopSize
		sum := 0.0
		for _, x := range padded[start : start+windowSize] {
			sum += x * x
		}
		rms[t] = math.Sqrt(sum / float64(windowSize))
	}
	return rms, nil
}

// ComputeZCR returns the fraction of sign changes in every centered frame.
// Frames are edge padded, so the first and last samples are repeated.
func ComputeZCR(signal []float64, windowSize, hopSize int) ([]float64, error) {
	if err := checkFraming(signal, windowSize, hopSize); err != nil {
		return nil, err
	}

	pad := windowSize / 2
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)
	first, last := signal[0], signal[len(signal)-1]
	for i := range pad {
		padded[i] = first
		padded[len(padded)-1-i] = last
	}

	frames := FrameCount(len(signal), windowSize, hopSize)
	zcr := make([]float64, frames)
	for t := range frames {
		frame := padded[t*hopSize : t*hopSize+windowSize]
		crossings := 0
		for i := 1; i < len(frame); i++ {
			if negative(frame[i]) != negative(frame[i-1]) {
				crossings++
			}
		}
		zcr[t] = float64(crossings) / float64(windowSize)
	}
	return zcr, nil
}

func negative(x float64) bool {
	return x < -ZeroCrossingThreshold
}

func checkFraming(signal []float64, windowSize, hopSize int) error {
	if len(signal) == 0 {
		return fmt.Errorf("empty signal")
	}
	if windowSize <= 0 || hopSize <= 0 {
		return fmt.Errorf("window size and hop size must be positive, got %d and %d", windowSize, hopSize)
	}
	return nil
}
