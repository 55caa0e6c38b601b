package analyzers

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// SpectralAnalyzer provides core FFT and STFT functionality
type SpectralAnalyzer struct {
	windowGenerator *WindowGenerator
	sampleRate      int
	logger          logging.Logger
}

// SpectrogramResult holds the magnitude of a centered STFT
type SpectrogramResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		windowGenerator: NewWindowGenerator(),
		sampleRate:      sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// SampleRate returns the analyzer's sample rate
func (sa *SpectralAnalyzer) SampleRate() int {
	return sa.sampleRate
}

// FFT computes the Fast Fourier Transform using mjibson/go-dsp
func (sa *SpectralAnalyzer) FFT(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// FrameCount returns the number of centered frames for a signal of n samples
func FrameCount(n, windowSize, hopSize int) int {
	padded := n + 2*(windowSize/2)
	if n <= 0 || padded < windowSize {
		return 0
	}
	return 1 + (padded-windowSize)/hopSize
}

// ComputeSTFT computes a centered short-time Fourier transform.
// The signal is zero padded by windowSize/2 on both sides so frame t is centered on sample t*hopSize.
func (sa *SpectralAnalyzer) ComputeSTFT(signal []float64, windowSize, hopSize int, windowType WindowType) (*SpectrogramResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	logger := sa.logger.WithFields(logging.Fields{
		"function":      "ComputeSTFT",
		"signal_length": len(signal),
		"window_size":   windowSize,
		"hop_size":      hopSize,
		"window_type":   windowType.String(),
	})

	window, err := sa.windowGenerator.Generate(&WindowConfig{Type: windowType, Size: windowSize})
	if err != nil {
		return nil, fmt.Errorf("failed to generate window: %w", err)
	}

	pad := windowSize / 2
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)

	numFrames := FrameCount(len(signal), windowSize, hopSize)
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range magnitude {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := optimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frame := make([]float64, windowSize)
			for t := range jobs {
				start := t * hopSize
				copy(frame, padded[start:start+windowSize])
				for i, c := range window.Coefficients {
					frame[i] *= c
				}

				spectrum := sa.FFT(frame)
				for k := range freqBins {
					magnitude[t][k] = cmplx.Abs(spectrum[k])
				}
			}
		}()
	}

	for t := range numFrames {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	result := &SpectrogramResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sa.sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sa.sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sa.sampleRate),
	}

	logger.Debug("STFT computation completed", logging.Fields{
		"time_frames":  result.TimeFrames,
		"freq_bins":    result.FreqBins,
		"workers_used": numWorkers,
	})

	return result, nil
}

// PowerSpectrogram squares every magnitude
func PowerSpectrogram(spec *SpectrogramResult) [][]float64 {
	power := make([][]float64, spec.TimeFrames)
	for t, frame := range spec.Magnitude {
		power[t] = make([]float64, len(frame))
		for k, m := range frame {
			power[t][k] = m * m
		}
	}
	return power
}

// GetFrequencyBins returns the center frequency of each FFT bin
func (sa *SpectralAnalyzer) GetFrequencyBins(windowSize int) []float64 {
	return FFTFrequencies(sa.sampleRate, windowSize)
}

// FFTFrequencies returns the frequencies of the windowSize/2+1 non-negative bins
func FFTFrequencies(sampleRate, windowSize int) []float64 {
	freqs := make([]float64, windowSize/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(windowSize)
	}
	return freqs
}

// optimalWorkerCount determines the number of STFT workers based on workload
func optimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return max(1, min(numCPU, 8))
	}

	return max(1, numCPU)
}
