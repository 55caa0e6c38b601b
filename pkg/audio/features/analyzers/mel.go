package analyzers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts frequency to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz converts a Slaney mel value back to Hz
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFilterBank builds an nMels x (nFFT/2+1) matrix of triangular filters
// with Slaney area normalization.
func MelFilterBank(sampleRate, nFFT, nMels int, fMin, fMax float64) (*mat.Dense, error) {
	if nMels <= 0 || nFFT <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid mel filterbank parameters: sr=%d n_fft=%d n_mels=%d", sampleRate, nFFT, nMels)
	}
	if fMax <= 0 {
		fMax = float64(sampleRate) / 2
	}
	if fMin < 0 || fMin >= fMax {
		return nil, fmt.Errorf("invalid mel frequency range [%g, %g]", fMin, fMax)
	}

	fftFreqs := FFTFrequencies(sampleRate, nFFT)

	// nMels+2 band edges equally spaced in mel
	minMel, maxMel := HzToMel(fMin), HzToMel(fMax)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = MelToHz(minMel + (maxMel-minMel)*float64(i)/float64(nMels+1))
	}

	weights := mat.NewDense(nMels, len(fftFreqs), nil)
	for m := range nMels {
		lowerWidth := edges[m+1] - edges[m]
		upperWidth := edges[m+2] - edges[m+1]
		enorm := 2.0 / (edges[m+2] - edges[m])

		for k, f := range fftFreqs {
			lower := (f - edges[m]) / lowerWidth
			upper := (edges[m+2] - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			if w > 0 {
				weights.Set(m, k, w*enorm)
			}
		}
	}

	return weights, nil
}
