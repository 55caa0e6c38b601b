package pitch

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/interp"

	"github.com/RyanBlaney/voice-features/pkg/audio/features/analyzers"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

const (
	lowCutFrequency = 50.0 // Hz
	safeGuard       = 1e-12
	maximumScore    = 100000.0
)

// DIO estimates a coarse F0 contour of x sampled at fs.
// Each band low-passes the signal with a Nuttall window whose cutoff sits near a
// candidate F0, measures four zero-crossing interval series and scores their agreement.
func DIO(x []float64, fs int, opts DIOOptions) (*PitchTrack, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if fs <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", fs)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component":   "pitch",
		"function":    "DIO",
		"sample_rate": fs,
		"samples":     len(x),
	})

	sampleRate := float64(fs)
	bands := 1 + int(math.Log2(opts.F0Ceil/opts.F0Floor)*opts.ChannelsInOctave)
	boundaries := make([]float64, bands)
	for i := range boundaries {
		boundaries[i] = opts.F0Floor * math.Pow(2, float64(i+1)/opts.ChannelsInOctave)
	}

	// one trailing zero sample is part of the analysed signal
	yLength := len(x) + 1
	fftSize := nextPowerOfTwo(yLength + 2*int(math.Round(sampleRate/lowCutFrequency)) + 1 +
		4*int(1+sampleRate/boundaries[0]/2))

	frames := int(1000*float64(len(x))/sampleRate/opts.FramePeriod) + 1
	positions := make([]float64, frames)
	for i := range positions {
		positions[i] = float64(i) * opts.FramePeriod / 1000
	}

	spectrum := signalSpectrum(x, sampleRate, yLength, fftSize)
	generator := analyzers.NewWindowGenerator()

	candidates := make([][]float64, bands)
	scores := make([][]float64, bands)
	for i, boundary := range boundaries {
		cand, score, err := bandCandidates(spectrum, generator, boundary, sampleRate, yLength, fftSize, positions, opts)
		if err != nil {
			return nil, fmt.Errorf("band %d (%.1f Hz): %w", i, boundary, err)
		}
		for j := range score {
			score[j] /= cand[j] + safeGuard
		}
		candidates[i] = cand
		scores[i] = score
	}

	best := bestContour(candidates, scores)
	f0 := fixContour(best, candidates, opts)

	track := &PitchTrack{
		F0:                f0,
		TemporalPositions: positions,
		FramePeriod:       opts.FramePeriod,
		SampleRate:        fs,
	}

	logger.Debug("DIO estimation completed", logging.Fields{
		"bands":    bands,
		"fft_size": fftSize,
		"frames":   frames,
		"voiced":   track.VoicedCount(),
	})

	return track, nil
}

// signalSpectrum removes the DC offset and applies the low-cut filter in the frequency domain
func signalSpectrum(x []float64, fs float64, yLength, fftSize int) []complex128 {
	y := make([]float64, fftSize)
	copy(y, x)

	mean := 0.0
	for _, v := range y[:yLength] {
		mean += v
	}
	mean /= float64(yLength)
	for i := range yLength {
		y[i] -= mean
	}

	spectrum := fft.FFTReal(y)
	filter := fft.FFTReal(lowCutFilter(2*int(math.Round(fs/lowCutFrequency))+1, fftSize))
	for i := range spectrum {
		spectrum[i] *= filter[i]
	}
	return spectrum
}

// lowCutFilter designs a zero-phase high-pass FIR of length n laid out circularly in fftSize samples
func lowCutFilter(n, fftSize int) []float64 {
	h := make([]float64, fftSize)
	sum := 0.0
	for i := 1; i <= n; i++ {
		h[i-1] = 0.5 - 0.5*math.Cos(float64(i)*2*math.Pi/float64(n+1))
		sum += h[i-1]
	}
	for i := range n {
		h[i] = -h[i] / sum
	}

	half := (n - 1) / 2
	for i := range half {
		h[fftSize-half+i] = h[i]
	}
	for i := range n {
		h[i] = h[i+half]
	}
	h[0] += 1
	return h
}

func bandCandidates(spectrum []complex128, generator *analyzers.WindowGenerator, boundary, fs float64,
	yLength, fftSize int, positions []float64, opts DIOOptions) ([]float64, []float64, error) {
	filtered, err := lowPassSignal(spectrum, generator, boundary, fs, yLength, fftSize)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]float64, len(positions))
	scores := make([]float64, len(positions))
	reject := func() ([]float64, []float64, error) {
		for i := range scores {
			scores[i] = maximumScore
		}
		return candidates, scores, nil
	}

	series := fourZeroCrossingIntervals(filtered, fs)
	var interpolated [4][]float64
	for i, s := range series {
		if len(s.intervals)-2 <= 0 {
			return reject()
		}
		values, err := s.interpolate(positions)
		if err != nil {
			return reject()
		}
		interpolated[i] = values
	}

	for j := range positions {
		mean := 0.0
		for i := range interpolated {
			mean += interpolated[i][j]
		}
		mean /= 4

		dev := 0.0
		for i := range interpolated {
			d := interpolated[i][j] - mean
			dev += d * d
		}

		if mean > boundary || mean < boundary/2 || mean > opts.F0Ceil || mean < opts.F0Floor {
			candidates[j] = 0
			scores[j] = maximumScore
			continue
		}
		candidates[j] = mean
		scores[j] = math.Sqrt(dev / 3)
	}

	return candidates, scores, nil
}

// lowPassSignal filters the signal spectrum with a Nuttall window of about two periods
// of boundary and compensates the filter delay.
func lowPassSignal(spectrum []complex128, generator *analyzers.WindowGenerator, boundary, fs float64, yLength, fftSize int) ([]float64, error) {
	half := int(math.Round(fs / boundary * 2))
	window, err := generator.Generate(&analyzers.WindowConfig{
		Type:      analyzers.WindowNuttall,
		Size:      2*half + 1,
		Symmetric: true,
	})
	if err != nil {
		return nil, err
	}

	kernel := make([]float64, fftSize)
	copy(kernel, window.Coefficients)
	kernelSpectrum := fft.FFTReal(kernel)

	product := make([]complex128, fftSize)
	for i := range product {
		product[i] = spectrum[i] * kernelSpectrum[i]
	}
	signal := fft.IFFT(product)

	bias := half + 1
	filtered := make([]float64, yLength)
	for i := range filtered {
		if i+bias < fftSize {
			filtered[i] = real(signal[i+bias])
		}
	}
	return filtered, nil
}

type intervalSeries struct {
	locations []float64 // seconds
	intervals []float64 // Hz
}

func (s intervalSeries) interpolate(at []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(s.locations, s.intervals); err != nil {
		return nil, err
	}
	out := make([]float64, len(at))
	for i, x := range at {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// fourZeroCrossingIntervals returns the negative-going, positive-going, peak and dip series
func fourZeroCrossingIntervals(filtered []float64, fs float64) [4]intervalSeries {
	var out [4]intervalSeries
	s := append([]float64(nil), filtered...)

	out[0] = zeroCrossingIntervals(s, fs)

	for i := range s {
		s[i] = -s[i]
	}
	out[1] = zeroCrossingIntervals(s, fs)

	n := len(s) - 1
	for i := range n {
		s[i] -= s[i+1]
	}
	out[2] = zeroCrossingIntervals(s[:n], fs)

	for i := range n {
		s[i] = -s[i]
	}
	out[3] = zeroCrossingIntervals(s[:n], fs)

	return out
}

// zeroCrossingIntervals locates negative-going crossings to sub-sample precision
// and converts the spacing between consecutive crossings into frequencies.
func zeroCrossingIntervals(s []float64, fs float64) intervalSeries {
	var edges []int
	for i := 0; i+1 < len(s); i++ {
		if s[i] > 0 && s[i+1] <= 0 {
			edges = append(edges, i+1)
		}
	}
	if len(edges) < 2 {
		return intervalSeries{}
	}

	fine := make([]float64, len(edges))
	for i, e := range edges {
		fine[i] = float64(e) - s[e-1]/(s[e]-s[e-1])
	}

	series := intervalSeries{
		locations: make([]float64, len(fine)-1),
		intervals: make([]float64, len(fine)-1),
	}
	for i := range len(fine) - 1 {
		series.intervals[i] = fs / (fine[i+1] - fine[i])
		series.locations[i] = (fine[i] + fine[i+1]) / 2 / fs
	}
	return series
}

// bestContour picks the lowest-score candidate of every frame
func bestContour(candidates, scores [][]float64) []float64 {
	frames := len(candidates[0])
	best := make([]float64, frames)
	for j := range frames {
		minScore := scores[0][j]
		best[j] = candidates[0][j]
		for i := 1; i < len(candidates); i++ {
			if scores[i][j] < minScore {
				minScore = scores[i][j]
				best[j] = candidates[i][j]
			}
		}
	}
	return best
}

// fixContour removes edge frames, jumps and short voiced runs, then extends
// voiced sections forward and backward through consistent candidates.
func fixContour(best []float64, candidates [][]float64, opts DIOOptions) []float64 {
	minRun := int(0.5+1000/opts.FramePeriod/opts.F0Floor)*2 + 1

	step1 := suppressJumps(best, minRun, opts.AllowedRange)
	step2 := removeShortRuns(step1, minRun)
	onsets, offsets := voicedBoundaries(step2)
	step3 := extendForward(step2, candidates, offsets, opts.AllowedRange)
	return extendBackward(step3, candidates, onsets, opts.AllowedRange)
}

func suppressJumps(best []float64, minRun int, allowed float64) []float64 {
	n := len(best)
	base := make([]float64, n)
	for i := minRun; i < n-minRun; i++ {
		base[i] = best[i]
	}

	out := make([]float64, n)
	for i := max(minRun, 1); i < n; i++ {
		if math.Abs((base[i]-base[i-1])/(safeGuard+base[i])) < allowed {
			out[i] = base[i]
		}
	}
	return out
}

func removeShortRuns(f0 []float64, minRun int) []float64 {
	out := append([]float64(nil), f0...)
	center := (minRun - 1) / 2
	for i := center; i < len(f0)-center; i++ {
		for j := -center; j <= center; j++ {
			if f0[i+j] == 0 {
				out[i] = 0
				break
			}
		}
	}
	return out
}

// voicedBoundaries returns the first frame of each voiced run and the last frame of each
func voicedBoundaries(f0 []float64) (onsets, offsets []int) {
	for i := 1; i < len(f0); i++ {
		switch {
		case f0[i] == 0 && f0[i-1] != 0:
			offsets = append(offsets, i-1)
		case f0[i-1] == 0 && f0[i] != 0:
			onsets = append(onsets, i)
		}
	}
	return onsets, offsets
}

func extendForward(f0 []float64, candidates [][]float64, offsets []int, allowed float64) []float64 {
	out := append([]float64(nil), f0...)
	for i, start := range offsets {
		limit := len(out) - 1
		if i < len(offsets)-1 {
			limit = offsets[i+1]
		}
		for j := start; j < limit; j++ {
			if j < 1 {
				continue
			}
			out[j+1] = selectBestF0(out[j], out[j-1], candidates, j+1, allowed)
			if out[j+1] == 0 {
				break
			}
		}
	}
	return out
}

func extendBackward(f0 []float64, candidates [][]float64, onsets []int, allowed float64) []float64 {
	out := append([]float64(nil), f0...)
	for i := len(onsets) - 1; i >= 0; i-- {
		limit := 1
		if i > 0 {
			limit = onsets[i-1]
		}
		for j := onsets[i]; j > limit; j-- {
			if j+1 >= len(out) {
				continue
			}
			out[j-1] = selectBestF0(out[j], out[j+1], candidates, j-1, allowed)
			if out[j-1] == 0 {
				break
			}
		}
	}
	return out
}

// selectBestF0 extrapolates the contour linearly and returns the candidate closest to it,
// or 0 when even the closest one is outside the allowed range.
func selectBestF0(current, past float64, candidates [][]float64, index int, allowed float64) float64 {
	reference := (current*3 - past) / 2
	if reference == 0 {
		return 0
	}

	best := candidates[0][index]
	minErr := math.Abs(reference - best)
	for i := 1; i < len(candidates); i++ {
		if e := math.Abs(reference - candidates[i][index]); e < minErr {
			minErr = e
			best = candidates[i][index]
		}
	}

	if math.Abs(1-best/reference) > allowed {
		return 0
	}
	return best
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
