package pitch

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	stoneMaskFloor     = 40.0 // Hz
	tentativeHarmonics = 2
	maxHarmonics       = 6
	maxRelativeChange  = 0.2
)

// StoneMask refines a coarse contour with the instantaneous frequency of the first harmonics,
// in two passes: the lowest harmonics fix a tentative F0 whose harmonics are then re-weighted.
// Frames outside (40 Hz, fs/12] are reported unvoiced. The input track is not modified.
func StoneMask(x []float64, fs int, track *PitchTrack) *PitchTrack {
	refined := track.Clone()
	if refined == nil || len(x) == 0 || fs <= 0 {
		return refined
	}

	for i, f0 := range track.F0 {
		refined.F0[i] = refineFrame(x, float64(fs), track.TemporalPositions[i], f0)
	}
	return refined
}

func refineFrame(x []float64, fs, position, f0 float64) float64 {
	if f0 <= stoneMaskFloor || f0 > fs/12 {
		return 0
	}

	half := int(1.5*fs/f0 + 1)
	length := 2*half + 1
	windowDuration := float64(length) / fs
	fftSize := int(math.Pow(2, float64(2+int(math.Log2(float64(length))))))

	mainWindow := make([]float64, length)
	samples := make([]float64, length)
	for i := range length {
		index := int(math.Round((position + float64(i-half)/fs) * fs))
		t := float64(index-1)/fs - position
		mainWindow[i] = 0.42 + 0.5*math.Cos(2*math.Pi*t/windowDuration) + 0.08*math.Cos(4*math.Pi*t/windowDuration)
		samples[i] = x[min(len(x)-1, max(0, index-1))]
	}

	diffWindow := make([]float64, length)
	diffWindow[0] = -mainWindow[1] / 2
	for i := 1; i < length-1; i++ {
		diffWindow[i] = -(mainWindow[i+1] - mainWindow[i-1]) / 2
	}
	diffWindow[length-1] = mainWindow[length-2] / 2

	mainFrame := make([]float64, fftSize)
	diffFrame := make([]float64, fftSize)
	for i := range length {
		mainFrame[i] = samples[i] * mainWindow[i]
		diffFrame[i] = samples[i] * diffWindow[i]
	}
	mainSpectrum := fft.FFTReal(mainFrame)
	diffSpectrum := fft.FFTReal(diffFrame)

	refined := tentativeF0(mainSpectrum, diffSpectrum, fs, f0)
	if math.IsNaN(refined) || math.IsInf(refined, 0) || math.Abs(refined-f0)/f0 > maxRelativeChange {
		return f0
	}
	return refined
}

// tentativeF0 first fixes f0 on the two lowest harmonics, then refines that
// estimate over up to six. A first pass that lands at or below zero or above
// twice f0 yields 0.
func tentativeF0(mainSpectrum, diffSpectrum []complex128, fs, f0 float64) float64 {
	tentative := fixF0(mainSpectrum, diffSpectrum, fs, f0, tentativeHarmonics)
	if tentative <= 0 || tentative > 2*f0 {
		return 0
	}
	return fixF0(mainSpectrum, diffSpectrum, fs, tentative, maxHarmonics)
}

// fixF0 is the amplitude-weighted instantaneous frequency of the first
// harmonics of f0, divided by the weighted harmonic numbers
func fixF0(mainSpectrum, diffSpectrum []complex128, fs, f0 float64, harmonics int) float64 {
	fftSize := len(mainSpectrum)
	harmonics = min(int(fs/2/f0), harmonics)

	numerator, denominator := 0.0, 0.0
	for h := 1; h <= harmonics; h++ {
		index := int(math.Round(f0 * float64(fftSize) / fs * float64(h)))
		if index > fftSize/2 {
			break
		}

		m, d := mainSpectrum[index], diffSpectrum[index]
		power := real(m)*real(m) + imag(m)*imag(m)

		instantaneous := 0.0
		if power != 0 {
			num := real(m)*imag(d) - imag(m)*real(d)
			instantaneous = float64(index)*fs/float64(fftSize) + num/power*fs/(2*math.Pi)
		}

		amplitude := math.Sqrt(power)
		numerator += amplitude * instantaneous
		denominator += amplitude * float64(h)
	}

	if denominator == 0 {
		return 0
	}
	return numerator / (denominator + safeGuard)
}

// Estimate runs DIO and refines the result with StoneMask
func Estimate(x []float64, fs int, opts DIOOptions) (*PitchTrack, error) {
	coarse, err := DIO(x, fs, opts)
	if err != nil {
		return nil, err
	}
	return StoneMask(x, fs, coarse), nil
}
