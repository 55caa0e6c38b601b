package analyzers

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// ContrastConfig controls octave-band spectral contrast
type ContrastConfig struct {
	Bands    int
	FMin     float64
	Quantile float64
	TopDB    float64
}

// EffectiveContrastBands reduces bands until the top octave edge lies below Nyquist
func EffectiveContrastBands(sampleRate int, fMin float64, bands int) int {
	nyquist := float64(sampleRate) / 2
	for bands > 0 && fMin*math.Pow(2, float64(bands)) >= nyquist {
		bands--
	}
	return bands
}

// ComputeSpectralContrast returns a (bands+1) x TimeFrames matrix of peak minus
// valley energy in dB. The last row covers everything above the top octave edge.
func (sa *SpectralAnalyzer) ComputeSpectralContrast(spec *SpectrogramResult, cfg ContrastConfig) (*mat.Dense, error) {
	if spec == nil || spec.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if cfg.FMin <= 0 || cfg.Quantile <= 0 || cfg.Quantile >= 1 {
		return nil, fmt.Errorf("invalid contrast parameters: fmin=%g quantile=%g", cfg.FMin, cfg.Quantile)
	}

	bands := EffectiveContrastBands(sa.sampleRate, cfg.FMin, cfg.Bands)
	if bands < 1 {
		return nil, fmt.Errorf("contrast fmin %g Hz leaves no octave band below Nyquist", cfg.FMin)
	}
	if bands != cfg.Bands {
		sa.logger.Debug("Reduced contrast bands to fit below Nyquist", logging.Fields{
			"requested": cfg.Bands,
			"effective": bands,
		})
	}

	freqs := sa.GetFrequencyBins(spec.WindowSize)

	octaves := make([]float64, bands+2)
	for i := 1; i < len(octaves); i++ {
		octaves[i] = cfg.FMin * math.Pow(2, float64(i-1))
	}

	peak := mat.NewDense(bands+1, spec.TimeFrames, nil)
	valley := mat.NewDense(bands+1, spec.TimeFrames, nil)

	values := make([]float64, 0, len(freqs))
	for k := 0; k <= bands; k++ {
		rows, count := contrastBandRows(freqs, octaves[k], octaves[k+1], k, bands)
		if len(rows) == 0 {
			continue
		}

		n := int(math.Max(1, math.RoundToEven(cfg.Quantile*float64(count))))
		n = min(n, len(rows))

		for t, frame := range spec.Magnitude {
			values = values[:0]
			for _, r := range rows {
				values = append(values, frame[r])
			}
			slices.Sort(values)

			valley.Set(k, t, SafeMean(values[:n]))
			peak.Set(k, t, SafeMean(values[len(values)-n:]))
		}
	}

	PowerToDB(peak, DefaultAmin, cfg.TopDB)
	PowerToDB(valley, DefaultAmin, cfg.TopDB)

	var contrast mat.Dense
	contrast.Sub(peak, valley)
	return &contrast, nil
}

// contrastBandRows selects the bins of band k. Bands above the first borrow the
// bin just below their lower edge, the last band extends to Nyquist, and every
// band but the last drops its top bin. count is the selection size before that drop.
func contrastBandRows(freqs []float64, fLow, fHigh float64, k, bands int) ([]int, int) {
	first, last := -1, -1
	for i, f := range freqs {
		if f >= fLow && f <= fHigh {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, 0
	}

	if k > 0 && first > 0 {
		first--
	}
	if k == bands {
		last = len(freqs) - 1
	}

	count := last - first + 1
	if k < bands {
		last--
	}
	if last < first {
		return nil, count
	}

	rows := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		rows = append(rows, i)
	}
	return rows, count
}
