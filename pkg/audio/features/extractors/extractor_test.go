package extractors

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/voice-features/pkg/audio/audiotest"
	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/audio/config"
	"github.com/RyanBlaney/voice-features/pkg/audio/decode"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/pitch"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

const testRate = 16000

// ExtractorTestSuite runs the extractor against synthesized fixtures
type ExtractorTestSuite struct {
	suite.Suite
	dir       string
	decoder   *decode.Decoder
	extractor *Extractor

	tonePath    string
	tone        *common.AudioBuffer
	silencePath string
	silence     *common.AudioBuffer
}

func (s *ExtractorTestSuite) SetupSuite() {
	s.dir = s.T().TempDir()

	var err error
	s.decoder, err = decode.NewDecoder(nil)
	s.Require().NoError(err)

	s.extractor, err = NewExtractor(nil, s.decoder, WithLogger(logging.NewNopLogger()))
	s.Require().NoError(err)

	s.tonePath = audiotest.WriteWAV(s.T(), s.dir, "tone.wav", testRate, audiotest.Sine(220, testRate, 1, 0.5))
	s.tone, err = s.decoder.Decode(s.tonePath)
	s.Require().NoError(err)

	s.silencePath = audiotest.WriteWAV(s.T(), s.dir, "silence.wav", testRate, audiotest.Silence(testRate, 0.5))
	s.silence, err = s.decoder.Decode(s.silencePath)
	s.Require().NoError(err)
}

func (s *ExtractorTestSuite) TestFeatureSetHasEveryKey() {
	fs, err := s.extractor.Extract(s.tone, s.tonePath)
	s.Require().NoError(err)

	m := fs.Map()
	s.Len(m, 11)
	for _, key := range fs.Keys() {
		s.Contains(m, key)
	}
	s.Len(m[KeyMFCC], 13)
	s.Equal(KeyHNR, fs.Keys()[10])
	s.NoError(fs.Validate())
	s.NoError(fs.Err())
	s.Empty(fs.Failures)
}

func (s *ExtractorTestSuite) TestSineTone() {
	fs, err := s.extractor.Extract(s.tone, s.tonePath)
	s.Require().NoError(err)

	s.InDelta(220, fs.MeanPitch, 5)
	s.Greater(fs.RMSEnergy, 0.0)
	s.Less(fs.RMSEnergy, s.tone.Peak())
	s.InDelta(0.0275, fs.ZeroCrossingRate, 0.002)
	s.Greater(fs.SpectralCentroid, 0.0)
	s.Len(fs.SpectralContrastBands, 6)

	s.Less(fs.Jitter, 0.01)
	s.Less(fs.Shimmer, 0.05)
	s.Greater(fs.HNR, 10.0)
}

func (s *ExtractorTestSuite) TestSilence() {
	fs, err := s.extractor.Extract(s.silence, s.silencePath)
	s.Require().NoError(err)

	s.Zero(fs.RMSEnergy)
	s.Zero(fs.ZeroCrossingRate)
	s.Zero(fs.MeanPitch)
	s.Zero(fs.SpectralCentroid)
	s.Zero(fs.SpectralBandwidth)
	s.Zero(fs.SpectralRolloff)
	s.Zero(fs.Jitter)
	s.Zero(fs.Shimmer)
	s.Zero(fs.HNR)

	// every mel band sits at the -100 dB floor
	s.InDelta(-100*math.Sqrt(128), fs.MFCC[0], 1e-6)
	s.NoError(fs.Validate())
}

func (s *ExtractorTestSuite) TestInvalidBuffer() {
	buffers := []*common.AudioBuffer{
		nil,
		{SampleRate: testRate},
		{Samples: []float64{0.1, 0.2}, SampleRate: 0},
	}
	for _, buf := range buffers {
		fs, err := s.extractor.Extract(buf, s.tonePath)
		s.Nil(fs)
		s.ErrorIs(err, common.ErrInvalidBuffer)
	}
}

func (s *ExtractorTestSuite) TestMissingPathDegradesPitchOnly() {
	core, logs := observer.New(zapcore.WarnLevel)
	ex, err := NewExtractor(nil, s.decoder, WithLogger(logging.NewZapLogger(zap.New(core))))
	s.Require().NoError(err)

	fs, err := ex.Extract(s.tone, filepath.Join(s.dir, "missing.wav"))
	s.Require().NoError(err)

	s.Zero(fs.MeanPitch)
	s.Zero(fs.Jitter)
	s.Equal([]string{KeyMeanPitch, KeyJitter, KeyShimmer, KeyHNR}, fs.FailedKeys())
	s.ErrorIs(fs.Err(), common.ErrIO)

	s.Greater(fs.RMSEnergy, 0.0)
	s.Greater(fs.SpectralCentroid, 0.0)
	s.Len(fs.Map(), 11)

	s.GreaterOrEqual(logs.FilterMessage("Feature extraction failed, reporting 0").Len(), 2)
}

func (s *ExtractorTestSuite) TestReuseBufferSkipsDecode() {
	cfg := config.DefaultFeatureConfig()
	cfg.Pitch.ReuseBuffer = true
	ex, err := NewExtractor(cfg, failingDecoder{}, WithLogger(logging.NewNopLogger()))
	s.Require().NoError(err)

	fs, err := ex.Extract(s.tone, "")
	s.Require().NoError(err)
	s.InDelta(220, fs.MeanPitch, 5)
	s.Empty(fs.Failures)
}

func (s *ExtractorTestSuite) TestVoiceQualityDisabled() {
	cfg := config.DefaultFeatureConfig()
	cfg.EnableVoiceQuality = false
	ex, err := NewExtractor(cfg, s.decoder, WithLogger(logging.NewNopLogger()))
	s.Require().NoError(err)

	fs, err := ex.Extract(s.tone, s.tonePath)
	s.Require().NoError(err)
	s.Zero(fs.Jitter)
	s.Zero(fs.Shimmer)
	s.Zero(fs.HNR)
	s.Len(fs.Map(), 11)
	s.Empty(fs.Failures)
}

func (s *ExtractorTestSuite) TestVoiceQualityProviderFromConfig() {
	cfg := config.DefaultFeatureConfig()
	cfg.VoiceQualityProvider = pitch.ProviderSonar
	ex, err := NewExtractor(cfg, s.decoder, WithLogger(logging.NewNopLogger()))
	s.Require().NoError(err)
	s.Require().NotNil(ex.voiceQuality)
	s.Equal(pitch.ProviderSonar, ex.voiceQuality.Name())

	fs, err := ex.Extract(s.tone, s.tonePath)
	s.Require().NoError(err)
	s.InDelta(220, fs.MeanPitch, 5)
	s.Len(fs.Map(), 11)

	cfg.VoiceQualityProvider = "praat"
	_, err = NewExtractor(cfg, s.decoder)
	s.Error(err)
}

func (s *ExtractorTestSuite) TestProviderPanicIsRecovered() {
	ex, err := NewExtractor(nil, s.decoder,
		WithLogger(logging.NewNopLogger()),
		WithVoiceQualityProvider(panickingProvider{}))
	s.Require().NoError(err)

	fs, err := ex.Extract(s.tone, s.tonePath)
	s.Require().NoError(err)
	s.Contains(fs.Failures, KeyJitter)
	s.Contains(fs.Failures, KeyHNR)
	s.InDelta(220, fs.MeanPitch, 5)
}

func TestExtractorTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}

func TestNewExtractorRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultFeatureConfig()
	cfg.HopSize = 0
	_, err := NewExtractor(cfg, failingDecoder{})
	assert.Error(t, err)
}

func TestFeatureSetValidate(t *testing.T) {
	fs := &FeatureSet{MFCC: make([]float64, 13)}
	require.NoError(t, fs.Validate())

	fs.RMSEnergy = math.NaN()
	assert.Error(t, fs.Validate())

	assert.Error(t, (&FeatureSet{}).Validate())
}

func TestFeatureKeysAreACopy(t *testing.T) {
	keys := FeatureKeys()
	keys[0] = "changed"
	assert.Equal(t, KeyMFCC, FeatureKeys()[0])
}

func sampleFeatureSet() *FeatureSet {
	return &FeatureSet{
		MFCC:                  []float64{-250.5, 30.25, -4},
		SpectralCentroid:      1200,
		SpectralBandwidth:     900,
		SpectralRolloff:       2500,
		SpectralContrast:      18,
		SpectralContrastBands: []float64{10, 20, 24},
		RMSEnergy:             0.12,
		ZeroCrossingRate:      0.08,
		MeanPitch:             180,
		Jitter:                0.01,
		Shimmer:               0.05,
		HNR:                   15,
		Failures:              map[string]string{KeyHNR: "boom"},
	}
}

func TestFeatureSetJSONUsesFeatureKeys(t *testing.T) {
	fs := sampleFeatureSet()
	data, err := json.Marshal(fs)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.ElementsMatch(t, FeatureKeys(), keysOf(decoded))
	assert.Equal(t, 180.0, decoded[KeyMeanPitch])
	assert.Len(t, decoded[KeyMFCC], 3)

	// Reporting order is preserved in the encoded object
	assert.Regexp(t, `^\{"MFCCs":\[.*\],"Spectral Centroid":1200,`, string(data))

	var back FeatureSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fs.Map(), back.Map())
	assert.Nil(t, back.SpectralContrastBands)
	assert.Nil(t, back.Failures)
}

func TestFeatureSetJSONEmptyMFCC(t *testing.T) {
	data, err := json.Marshal(&FeatureSet{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"MFCCs":[]`)
}

func TestFeatureSetYAMLUsesFeatureKeys(t *testing.T) {
	fs := sampleFeatureSet()
	data, err := yaml.Marshal(fs)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.ElementsMatch(t, FeatureKeys(), keysOf(decoded))

	var back FeatureSet
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, fs.Map(), back.Map())
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

type failingDecoder struct{}

func (failingDecoder) DecodeNativeContext(context.Context, string) (*common.AudioBuffer, error) {
	return nil, errors.New("decoder must not be called")
}

type panickingProvider struct{}

func (panickingProvider) Name() string { return "panicking" }

func (panickingProvider) Measure([]float64, int, *pitch.PitchTrack) (pitch.VoiceQuality, error) {
	panic("boom")
}
