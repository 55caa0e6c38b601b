package pitch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/voice-features/pkg/audio/audiotest"
)

const testRate = 16000

func TestEstimateSineTone(t *testing.T) {
	x := audiotest.Sine(220, testRate, 1, 0.5)

	track, err := Estimate(x, testRate, DefaultDIOOptions())
	require.NoError(t, err)

	// int(1000 * 16000 / 16000 / 5) + 1
	assert.Equal(t, 201, track.Len())
	assert.Len(t, track.TemporalPositions, track.Len())
	assert.InDelta(t, 0.005, track.TemporalPositions[1], 1e-12)

	assert.Greater(t, track.VoicedCount(), track.Len()/2)
	assert.InDelta(t, 220, track.MeanVoiced(), 5)
}

func TestDIOCoarseContour(t *testing.T) {
	x := audiotest.Sine(150, testRate, 1, 0.5)

	track, err := DIO(x, testRate, DefaultDIOOptions())
	require.NoError(t, err)

	assert.Greater(t, track.VoicedCount(), 0)
	assert.InDelta(t, 150, track.MeanVoiced(), 10)
	// the leading frames are never voiced
	assert.Zero(t, track.F0[0])
}

func TestEstimateSilence(t *testing.T) {
	track, err := Estimate(audiotest.Silence(testRate, 0.5), testRate, DefaultDIOOptions())
	require.NoError(t, err)

	assert.Zero(t, track.VoicedCount())
	assert.Zero(t, track.MeanVoiced())
}

func TestDIOInvalidInput(t *testing.T) {
	_, err := DIO(nil, testRate, DefaultDIOOptions())
	assert.Error(t, err)

	_, err = DIO([]float64{0, 1}, 0, DefaultDIOOptions())
	assert.Error(t, err)

	opts := DefaultDIOOptions()
	opts.F0Ceil = opts.F0Floor
	_, err = DIO([]float64{0, 1}, testRate, opts)
	assert.Error(t, err)
}

func TestStoneMaskLeavesInputUntouched(t *testing.T) {
	x := audiotest.Sine(220, testRate, 0.5, 0.5)
	coarse := &PitchTrack{
		F0:                []float64{0, 30, 215, 5000},
		TemporalPositions: []float64{0.1, 0.15, 0.2, 0.25},
		FramePeriod:       5,
		SampleRate:        testRate,
	}

	refined := StoneMask(x, testRate, coarse)
	assert.Equal(t, []float64{0, 30, 215, 5000}, coarse.F0)

	assert.Zero(t, refined.F0[0])
	assert.Zero(t, refined.F0[1], "below the refinement floor")
	assert.InDelta(t, 220, refined.F0[2], 2)
	assert.Zero(t, refined.F0[3], "above fs/12")

	assert.Nil(t, StoneMask(x, testRate, nil))
}

func TestStoneMaskTentativePass(t *testing.T) {
	x := audiotest.Sine(220, testRate, 1, 0.5)

	// a single six-harmonic pass from 10 Hz low stops more than 1 Hz short
	refined := refineFrame(x, testRate, 0.5, 210)
	assert.InDelta(t, 220, refined, 0.8)

	// an empty spectrum fails the tentative pass
	silent := make([]complex128, 256)
	assert.Zero(t, tentativeF0(silent, silent, testRate, 200))
	assert.Zero(t, fixF0(silent, silent, testRate, 200, tentativeHarmonics))

	// a rejected tentative value keeps the coarse estimate
	assert.Equal(t, 210.0, refineFrame(make([]float64, testRate), testRate, 0.5, 210))
}

func TestLowCutFilterRejectsDC(t *testing.T) {
	h := lowCutFilter(641, 4096)
	assert.InDelta(t, 0, floats.Sum(h), 1e-9)
}

func TestZeroCrossingIntervals(t *testing.T) {
	x := audiotest.Sine(200, testRate, 0.1, 1)
	for i := range x {
		x[i] = -x[i] + 1e-3 // shift off the exact zero samples
	}

	series := zeroCrossingIntervals(x, testRate)
	require.NotEmpty(t, series.intervals)
	for _, f := range series.intervals {
		assert.InDelta(t, 200, f, 0.5)
	}
	assert.Len(t, series.locations, len(series.intervals))

	empty := zeroCrossingIntervals([]float64{1, 1, 1}, testRate)
	assert.Empty(t, empty.intervals)
}

func TestSelectBestF0(t *testing.T) {
	candidates := [][]float64{
		{0, 0, 100},
		{0, 0, 205},
		{0, 0, 400},
	}

	// extrapolated reference is 210
	assert.Equal(t, 205.0, selectBestF0(200, 180, candidates, 2, 0.1))
	assert.Zero(t, selectBestF0(300, 200, candidates, 2, 0.1))
	assert.Zero(t, selectBestF0(0, 0, candidates, 2, 0.1))
}

func TestRemoveShortRuns(t *testing.T) {
	in := []float64{0, 100, 100, 0, 100, 100, 100, 100, 100, 0}
	out := removeShortRuns(in, 3)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 100, 100, 100, 0, 0}, out)
}

func TestVoicedBoundaries(t *testing.T) {
	onsets, offsets := voicedBoundaries([]float64{0, 1, 1, 0, 0, 1, 0})
	assert.Equal(t, []int{1, 5}, onsets)
	assert.Equal(t, []int{2, 5}, offsets)
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, nextPowerOfTwo(1))
	assert.Equal(t, 1024, nextPowerOfTwo(1000))
	assert.Equal(t, 1024, nextPowerOfTwo(1024))
}

func TestPitchTrackHelpers(t *testing.T) {
	var nilTrack *PitchTrack
	assert.Zero(t, nilTrack.Len())
	assert.Zero(t, nilTrack.MeanVoiced())

	track := &PitchTrack{F0: []float64{0, 200, 0, 220}, TemporalPositions: []float64{0, 1, 2, 3}}
	assert.Equal(t, 2, track.VoicedCount())
	assert.InDelta(t, 210, track.MeanVoiced(), 1e-12)

	clone := track.Clone()
	clone.F0[1] = 0
	assert.Equal(t, 200.0, track.F0[1])
}

func TestPeriodicityAnalyzerOnSine(t *testing.T) {
	x := audiotest.Sine(220, testRate, 1, 0.5)
	track, err := Estimate(x, testRate, DefaultDIOOptions())
	require.NoError(t, err)

	pa := NewPeriodicityAnalyzer()
	assert.Equal(t, "periodicity", pa.Name())

	vq, err := pa.Measure(x, testRate, track)
	require.NoError(t, err)
	assert.Less(t, vq.Jitter, 0.01)
	assert.Less(t, vq.Shimmer, 0.05)
	assert.Greater(t, vq.HNR, 20.0)
	assert.LessOrEqual(t, vq.HNR, MaxHNR)
}

func TestPeriodicityAnalyzerUnvoiced(t *testing.T) {
	pa := NewPeriodicityAnalyzer()
	track := &PitchTrack{F0: make([]float64, 10), TemporalPositions: make([]float64, 10)}

	vq, err := pa.Measure(audiotest.Silence(testRate, 0.1), testRate, track)
	require.NoError(t, err)
	assert.Equal(t, VoiceQuality{}, vq)

	_, err = pa.Measure(nil, 0, track)
	assert.Error(t, err)

	_, err = pa.Measure(nil, testRate, &PitchTrack{F0: []float64{1}})
	assert.Error(t, err)
}

func TestHarmonicToNoise(t *testing.T) {
	assert.Equal(t, MinHNR, harmonicToNoise(-0.5))
	assert.Equal(t, MaxHNR, harmonicToNoise(1))
	assert.InDelta(t, 0, harmonicToNoise(0.5), 1e-12)
	assert.InDelta(t, 10*math.Log10(9), harmonicToNoise(0.9), 1e-9)
}

func TestNewVoiceQualityProvider(t *testing.T) {
	for name, want := range map[string]string{
		"":                  ProviderPeriodicity,
		ProviderPeriodicity: ProviderPeriodicity,
		ProviderSonar:       ProviderSonar,
	} {
		p, err := NewVoiceQualityProvider(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, p.Name())
	}

	_, err := NewVoiceQualityProvider("praat")
	assert.Error(t, err)
}

func TestSonarVoiceQuality(t *testing.T) {
	sv := NewSonarVoiceQuality()
	unvoiced := &PitchTrack{F0: make([]float64, 10), TemporalPositions: make([]float64, 10)}

	vq, err := sv.Measure(audiotest.Silence(testRate, 0.1), testRate, unvoiced)
	require.NoError(t, err)
	assert.Equal(t, VoiceQuality{}, vq)

	_, err = sv.Measure(nil, 0, unvoiced)
	assert.Error(t, err)
	_, err = sv.Measure(nil, testRate, &PitchTrack{F0: []float64{1}})
	assert.Error(t, err)

	// the sonar analyzer needs a full second of signal
	short := audiotest.Sine(220, testRate, 0.5, 0.5)
	voiced := &PitchTrack{F0: []float64{220, 220, 220}, TemporalPositions: []float64{0.1, 0.105, 0.11}}
	_, err = sv.Measure(short, testRate, voiced)
	assert.ErrorContains(t, err, "sonar voice quality")

	x := audiotest.Sine(220, testRate, 2, 0.5)
	track, err := Estimate(x, testRate, DefaultDIOOptions())
	require.NoError(t, err)
	vq, err = sv.Measure(x, testRate, track)
	if err == nil {
		assert.GreaterOrEqual(t, vq.Jitter, 0.0)
		assert.GreaterOrEqual(t, vq.Shimmer, 0.0)
		assert.GreaterOrEqual(t, vq.HNR, MinHNR)
		assert.LessOrEqual(t, vq.HNR, MaxHNR)
	} else {
		assert.ErrorContains(t, err, "sonar voice quality")
	}
}
