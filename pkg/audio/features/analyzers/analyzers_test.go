package analyzers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/voice-features/pkg/audio/audiotest"
)

const testRate = 16000

func TestFrameCount(t *testing.T) {
	tests := []struct {
		n, win, hop int
		want        int
	}{
		{16000, 2048, 512, 32},
		{8000, 2048, 512, 16},
		{1, 2048, 512, 1},
		{0, 2048, 512, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrameCount(tt.n, tt.win, tt.hop), "n=%d", tt.n)
	}
}

func TestWindowGeneratorCachesAndShapes(t *testing.T) {
	g := NewWindowGenerator()

	w, err := g.Generate(&WindowConfig{Type: WindowHann, Size: 8})
	require.NoError(t, err)
	assert.InDelta(t, 0, w.Coefficients[0], 1e-12)
	assert.InDelta(t, 1, w.Coefficients[4], 1e-12)

	again, err := g.Generate(&WindowConfig{Type: WindowHann, Size: 8})
	require.NoError(t, err)
	assert.Same(t, w, again)

	_, err = g.Generate(&WindowConfig{Type: WindowHann})
	assert.Error(t, err)
}

func TestWindowCoefficients(t *testing.T) {
	tests := []struct {
		typ       WindowType
		symmetric bool
		first     float64
		mid       float64
	}{
		{WindowHann, false, 0, 1},
		{WindowHamming, false, 0.08, 1},
		{WindowBlackman, false, 0, 1},
		{WindowBlackmanHarris, false, 0.00006, 1},
		{WindowNuttall, false, 0, 1},
		{WindowRectangular, false, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			w, err := NewWindowGenerator().Generate(&WindowConfig{Type: tt.typ, Size: 16, Symmetric: tt.symmetric})
			require.NoError(t, err)
			require.Len(t, w.Coefficients, 16)
			assert.InDelta(t, tt.first, w.Coefficients[0], 1e-6)
			assert.InDelta(t, tt.mid, w.Coefficients[8], 1e-6)
		})
	}

	sym, err := NewWindowGenerator().Generate(&WindowConfig{Type: WindowHann, Size: 9, Symmetric: true})
	require.NoError(t, err)
	assert.InDelta(t, 0, sym.Coefficients[8], 1e-12)
	assert.InDelta(t, 1, sym.Coefficients[4], 1e-12)

	one, err := NewWindowGenerator().Generate(&WindowConfig{Type: WindowBlackman, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, one.Coefficients)

	_, err = NewWindowGenerator().Generate(&WindowConfig{Type: WindowType(99), Size: 4})
	assert.Error(t, err)
}

func TestSTFTShape(t *testing.T) {
	sa := NewSpectralAnalyzer(testRate)
	spec, err := sa.ComputeSTFT(audiotest.Sine(440, testRate, 1, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)

	assert.Equal(t, 32, spec.TimeFrames)
	assert.Equal(t, 1025, spec.FreqBins)
	require.Len(t, spec.Magnitude, 32)
	assert.Len(t, spec.Magnitude[0], 1025)

	_, err = sa.ComputeSTFT(nil, 2048, 512, WindowHann)
	assert.Error(t, err)
}

func TestMelScaleRoundTrip(t *testing.T) {
	assert.InDelta(t, 15, HzToMel(1000), 1e-9)
	for _, hz := range []float64{0, 300, 999, 1000, 4000, 8000} {
		assert.InDelta(t, hz, MelToHz(HzToMel(hz)), 1e-6)
	}
}

func TestMelFilterBank(t *testing.T) {
	fb, err := MelFilterBank(testRate, 2048, 128, 0, 0)
	require.NoError(t, err)

	rows, cols := fb.Dims()
	assert.Equal(t, 128, rows)
	assert.Equal(t, 1025, cols)
	assert.GreaterOrEqual(t, mat.Min(fb), 0.0)
	for m := range rows {
		assert.Greater(t, mat.Max(fb.RowView(m)), 0.0, "filter %d is empty", m)
	}

	_, err = MelFilterBank(testRate, 2048, 0, 0, 0)
	assert.Error(t, err)
}

func TestDCTMatrixIsOrthonormal(t *testing.T) {
	d := DCTMatrix(16, 16)
	var prod mat.Dense
	prod.Mul(d, d.T())

	identity := mat.NewDiagDense(16, nil)
	for i := range 16 {
		identity.SetDiag(i, 1)
	}
	assert.True(t, mat.EqualApprox(&prod, identity, 1e-9))
}

func TestPowerToDB(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{100, 1, 1e-20})
	PowerToDB(m, DefaultAmin, DefaultTopDB)

	assert.InDelta(t, 20, m.At(0, 0), 1e-9)
	assert.InDelta(t, 0, m.At(0, 1), 1e-9)
	// -100 dB is clamped to 80 dB below the 20 dB peak
	assert.InDelta(t, -60, m.At(0, 2), 1e-9)
}

func TestDescriptorsOfSine(t *testing.T) {
	sa := NewSpectralAnalyzer(testRate)
	spec, err := sa.ComputeSTFT(audiotest.Sine(1000, testRate, 1, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)

	d := sa.ComputeFrameDescriptors(spec, 0.85)
	mid := spec.TimeFrames / 2
	assert.InDelta(t, 1000, d.Centroid[mid], 20)
	assert.InDelta(t, 1000, d.Rolloff[mid], 20)
	assert.Less(t, d.Bandwidth[mid], 100.0)
}

func TestDescriptorsOfSilence(t *testing.T) {
	sa := NewSpectralAnalyzer(testRate)
	spec, err := sa.ComputeSTFT(audiotest.Silence(testRate, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)

	d := sa.ComputeFrameDescriptors(spec, 0.85)
	for t2 := range spec.TimeFrames {
		assert.Zero(t, d.Centroid[t2])
		assert.Zero(t, d.Bandwidth[t2])
		assert.Zero(t, d.Rolloff[t2])
	}
}

func TestMFCC(t *testing.T) {
	sa := NewSpectralAnalyzer(testRate)
	cfg := MFCCConfig{Coefficients: 13, MelBands: 128, TopDB: DefaultTopDB}

	spec, err := sa.ComputeSTFT(audiotest.Sine(220, testRate, 1, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)
	mfcc, err := sa.ComputeMFCC(spec, cfg)
	require.NoError(t, err)

	rows, cols := mfcc.Dims()
	assert.Equal(t, 13, rows)
	assert.Equal(t, spec.TimeFrames, cols)
	for _, v := range RowMeans(mfcc) {
		assert.True(t, Finite(v))
	}

	silent, err := sa.ComputeSTFT(audiotest.Silence(testRate, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)
	mfcc, err = sa.ComputeMFCC(silent, cfg)
	require.NoError(t, err)

	means := RowMeans(mfcc)
	assert.InDelta(t, -100*math.Sqrt(128), means[0], 1e-6)
	for _, v := range means[1:] {
		assert.InDelta(t, 0, v, 1e-6)
	}

	_, err = sa.ComputeMFCC(spec, MFCCConfig{Coefficients: 200, MelBands: 128})
	assert.Error(t, err)
}

func TestSpectralContrast(t *testing.T) {
	assert.Equal(t, 5, EffectiveContrastBands(testRate, 200, 6))
	assert.Equal(t, 6, EffectiveContrastBands(44100, 200, 6))

	sa := NewSpectralAnalyzer(testRate)
	spec, err := sa.ComputeSTFT(audiotest.Sine(220, testRate, 1, 0.5), 2048, 512, WindowHann)
	require.NoError(t, err)

	contrast, err := sa.ComputeSpectralContrast(spec, ContrastConfig{Bands: 6, FMin: 200, Quantile: 0.02, TopDB: DefaultTopDB})
	require.NoError(t, err)

	rows, cols := contrast.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, spec.TimeFrames, cols)
	for _, v := range RowMeans(contrast) {
		assert.True(t, Finite(v))
	}

	_, err = sa.ComputeSpectralContrast(spec, ContrastConfig{Bands: 6, FMin: 200, Quantile: 1.5})
	assert.Error(t, err)
}

func TestContrastBandRows(t *testing.T) {
	freqs := FFTFrequencies(testRate, 16) // 0, 1000, ... 8000

	rows, count := contrastBandRows(freqs, 0, 200, 0, 2)
	assert.Equal(t, 1, count)
	assert.Empty(t, rows)

	rows, count = contrastBandRows(freqs, 800, 3200, 2, 2)
	assert.Equal(t, 9, count)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, rows)

	rows, count = contrastBandRows(freqs, 200, 800, 1, 2)
	assert.Equal(t, 0, count)
	assert.Empty(t, rows)
}

func TestRMS(t *testing.T) {
	rms, err := ComputeRMS(audiotest.Sine(220, testRate, 1, 0.5), 2048, 512)
	require.NoError(t, err)
	require.Len(t, rms, 32)
	assert.InDelta(t, 0.5/math.Sqrt2, rms[16], 0.01)

	silence, err := ComputeRMS(audiotest.Silence(testRate, 0.5), 2048, 512)
	require.NoError(t, err)
	assert.Zero(t, SafeMean(silence))

	_, err = ComputeRMS(nil, 2048, 512)
	assert.Error(t, err)
}

func TestZCR(t *testing.T) {
	zcr, err := ComputeZCR(audiotest.Sine(220, testRate, 1, 0.5), 2048, 512)
	require.NoError(t, err)
	assert.InDelta(t, 2*220.0/testRate, zcr[16], 0.002)

	silence, err := ComputeZCR(audiotest.Silence(testRate, 0.5), 2048, 512)
	require.NoError(t, err)
	assert.Zero(t, SafeMean(silence))

	// values inside the threshold are not negative
	tiny, err := ComputeZCR([]float64{1e-12, -1e-12, 1e-12, -1e-12}, 4, 1)
	require.NoError(t, err)
	assert.Zero(t, SafeMean(tiny))
}

func TestSafeMean(t *testing.T) {
	assert.Zero(t, SafeMean(nil))
	assert.Zero(t, SafeMean([]float64{math.Inf(1), 1}))
	assert.InDelta(t, 2, SafeMean([]float64{1, 2, 3}), 1e-12)
}
