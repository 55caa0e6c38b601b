package analyzers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MFCCConfig controls the cepstral pipeline
type MFCCConfig struct {
	Coefficients int
	MelBands     int
	FMin         float64
	FMax         float64 // 0 means Nyquist
	TopDB        float64
}

// DCTMatrix returns the first n rows of the orthonormal DCT-II basis of size size
func DCTMatrix(n, size int) *mat.Dense {
	basis := mat.NewDense(n, size, nil)
	for k := range n {
		scale := math.Sqrt(2.0 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		for i := range size {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size))))
		}
	}
	return basis
}

// MelSpectrogram projects the power spectrogram onto the mel filterbank.
// The result is MelBands x TimeFrames.
func (sa *SpectralAnalyzer) MelSpectrogram(spec *SpectrogramResult, cfg MFCCConfig) (*mat.Dense, error) {
	if spec == nil || spec.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}

	basis, err := MelFilterBank(sa.sampleRate, spec.WindowSize, cfg.MelBands, cfg.FMin, cfg.FMax)
	if err != nil {
		return nil, err
	}

	// bins x frames power matrix
	power := mat.NewDense(spec.FreqBins, spec.TimeFrames, nil)
	for t, frame := range spec.Magnitude {
		for k, m := range frame {
			power.Set(k, t, m*m)
		}
	}

	var mel mat.Dense
	mel.Mul(basis, power)
	return &mel, nil
}

// ComputeMFCC returns a Coefficients x TimeFrames matrix of cepstral coefficients
func (sa *SpectralAnalyzer) ComputeMFCC(spec *SpectrogramResult, cfg MFCCConfig) (*mat.Dense, error) {
	if cfg.Coefficients <= 0 || cfg.Coefficients > cfg.MelBands {
		return nil, fmt.Errorf("invalid coefficient count %d for %d mel bands", cfg.Coefficients, cfg.MelBands)
	}

	mel, err := sa.MelSpectrogram(spec, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute mel spectrogram: %w", err)
	}

	PowerToDB(mel, DefaultAmin, cfg.TopDB)

	var mfcc mat.Dense
	mfcc.Mul(DCTMatrix(cfg.Coefficients, cfg.MelBands), mel)
	return &mfcc, nil
}
