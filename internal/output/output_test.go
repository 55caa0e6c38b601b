package output

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	lbcoutput "github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/voice-features/internal/batch"
	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

func sampleReport() *batch.Report {
	results := []*batch.FileResult{
		{
			Path:     "speech.wav",
			Duration: 2,
			Features: &extractors.FeatureSet{
				MFCC:             []float64{-300.5, 12.25},
				SpectralCentroid: 1500,
				RMSEnergy:        0.1,
				MeanPitch:        180,
				Failures:         map[string]string{extractors.KeyHNR: "boom"},
			},
		},
		{Path: "broken.wav", Err: errors.New("corrupt"), Error: "corrupt"},
	}
	return &batch.Report{
		Results: results,
		Summary: batch.NewMetricsCalculator(logging.NewNopLogger()).Summarize(results),
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"json", "yaml", "csv", "table", ""} {
		f, err := NewFormatter(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("html")
	assert.Error(t, err)

	f, err := NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &lbcoutput.JSONFormatter{}, f)
	f, err = NewFormatter("yaml")
	require.NoError(t, err)
	assert.IsType(t, &lbcoutput.YAMLFormatter{}, f)
}

func TestJSONReport(t *testing.T) {
	out, err := (&lbcoutput.JSONFormatter{}).Format(NewReportView(sampleReport(), false), true)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.NotContains(t, decoded, "summary")

	results := decoded["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	features := first["features"].(map[string]any)
	assert.Equal(t, 180.0, features[extractors.KeyMeanPitch])
	assert.Len(t, features, len(extractors.FeatureKeys()))
	assert.Equal(t, "corrupt", results[1].(map[string]any)["error"])
}

func TestYAMLReportWithSummary(t *testing.T) {
	out, err := (&lbcoutput.YAMLFormatter{}).Format(NewReportView(sampleReport(), true), true)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 1, summary["succeeded"])
	assert.Equal(t, 1, summary["failed"])
}

func TestCSVReport(t *testing.T) {
	out, err := (&CSVFormatter{}).Format(NewReportView(sampleReport(), false), false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "path,duration_seconds,error,mfcc_0,mfcc_1,spectral_centroid"))
	assert.Contains(t, lines[0], "world_mean_pitch_f0")
	assert.Contains(t, lines[0], "harmonic_to_noise_ratio_hnr")
	assert.True(t, strings.HasPrefix(lines[1], "speech.wav,2.000,,-300.500,12.250,1500.000"))
	assert.True(t, strings.HasPrefix(lines[2], "broken.wav,0.000,corrupt,,"))
}

func TestTableReport(t *testing.T) {
	out, err := (&TableFormatter{}).Format(NewReportView(sampleReport(), true), true)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "speech.wav")
	assert.Contains(t, text, "Feature")
	assert.Contains(t, text, "[-300.50 12.25]")
	assert.Contains(t, text, extractors.KeyMeanPitch)
	assert.Contains(t, text, "(failed: boom)")
	assert.Contains(t, text, "2.0s")
	assert.Contains(t, text, "Summary: 2 files, 1 succeeded, 1 failed")
	assert.Contains(t, text, "Std Dev")
	assert.Contains(t, text, "MFCCs[1]")
}

func TestUnsupportedShapes(t *testing.T) {
	_, err := (&CSVFormatter{}).Format(map[string]int{"a": 1}, false)
	assert.Error(t, err)
	_, err = (&TableFormatter{}).Format(42, false)
	assert.Error(t, err)
}

func TestBufferInfo(t *testing.T) {
	buf := &common.AudioBuffer{
		Samples:          []float64{0.5, -0.5, 0.5, -0.5},
		SampleRate:       4,
		Path:             "x.wav",
		Format:           common.FormatWAV,
		SourceSampleRate: 8,
		DecodedChannels:  2,
	}
	info := NewBufferInfo(buf)
	assert.Equal(t, 4, info.Samples)
	assert.InDelta(t, 1.0, info.DurationSeconds, 1e-12)
	assert.InDelta(t, 0.5, info.Peak, 1e-12)
	assert.InDelta(t, 0.5, info.RMS, 1e-12)

	records := info.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "decoded_channels", records[0][3])
	assert.Equal(t, "2", records[1][3])

	out, err := (&TableFormatter{}).Format(info, true)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Source Sample Rate")
	assert.Contains(t, string(out), "Decoded Channels")

	out, err = (&lbcoutput.JSONFormatter{}).Format(info, false)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"decoded_channels":2`)
	assert.NotContains(t, string(out), "source_channels")
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "Std Dev", Heading("std_dev"))
	assert.Equal(t, "Sample Rate", Heading("sample_rate"))
}
