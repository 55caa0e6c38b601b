package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/voice-features/configs"
	"github.com/RyanBlaney/voice-features/pkg/audio/audiotest"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
)

func newTestApp(t *testing.T, format string, summary bool) (*App, *bytes.Buffer) {
	t.Helper()

	cfg := configs.GetDefaultConfig()
	cfg.OutputFormat = format
	cfg.LogLevel = "error"

	var out bytes.Buffer
	a, err := NewApp(&Context{Config: cfg, Stdout: &out, Summary: summary})
	require.NoError(t, err)
	return a, &out
}

func TestExtractJSON(t *testing.T) {
	dir := t.TempDir()
	tone := audiotest.WriteWAV(t, dir, "tone.wav", 16000, audiotest.Sine(220, 16000, 1, 0.5))
	missing := filepath.Join(dir, "missing.wav")

	a, out := newTestApp(t, "json", true)
	require.NoError(t, a.Extract(context.Background(), []string{tone, missing}))

	var decoded struct {
		Results []struct {
			Path     string         `json:"path"`
			Error    string         `json:"error"`
			Features map[string]any `json:"features"`
		} `json:"results"`
		Summary *struct {
			Succeeded int `json:"succeeded"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	require.Len(t, decoded.Results, 2)
	require.NotNil(t, decoded.Results[0].Features)
	assert.InDelta(t, 220, decoded.Results[0].Features[extractors.KeyMeanPitch], 5)
	assert.Len(t, decoded.Results[0].Features, len(extractors.FeatureKeys()))
	assert.True(t, strings.HasSuffix(out.String(), "}\n"))
	assert.NotEmpty(t, decoded.Results[1].Error)
	require.NotNil(t, decoded.Summary)
	assert.Equal(t, 1, decoded.Summary.Succeeded)
}

func TestExtractAllFailed(t *testing.T) {
	a, out := newTestApp(t, "table", false)
	err := a.Extract(context.Background(), []string{filepath.Join(t.TempDir(), "nope.wav")})
	assert.Error(t, err)
	assert.Contains(t, out.String(), "nope.wav")

	assert.Error(t, a.Extract(context.Background(), nil))
}

func TestExtractToFile(t *testing.T) {
	dir := t.TempDir()
	tone := audiotest.WriteWAV(t, dir, "tone.wav", 16000, audiotest.Sine(440, 16000, 0.5, 0.5))

	cfg := configs.GetDefaultConfig()
	cfg.OutputFormat = "csv"
	target := filepath.Join(dir, "out", "features.csv")
	a, err := NewApp(&Context{Config: cfg, OutputFile: target})
	require.NoError(t, err)

	require.NoError(t, a.Extract(context.Background(), []string{tone}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "path,duration_seconds,error")
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	tone := audiotest.WriteWAV(t, dir, "tone.wav", 8000, audiotest.Sine(220, 8000, 1, 0.5))

	a, out := newTestApp(t, "json", false)
	require.NoError(t, a.Decode(context.Background(), tone))

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, 8000.0, info["source_sample_rate"])
	assert.Equal(t, 16000.0, info["sample_rate"])
	assert.InDelta(t, 1.0, info["duration_seconds"], 0.01)
	assert.Equal(t, 1.0, info["decoded_channels"])
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	_, err := NewApp(&Context{})
	assert.Error(t, err)

	cfg := configs.GetDefaultConfig()
	cfg.OutputFormat = "xml"
	_, err = NewApp(&Context{Config: cfg})
	assert.Error(t, err)
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice-features.yaml")
	cfg := configs.GetDefaultConfig()
	cfg.Batch.Timeout = 45 * time.Second
	cfg.Pitch.F0Floor = 65

	require.NoError(t, WriteConfigFile(path, cfg, false))
	assert.Error(t, WriteConfigFile(path, cfg, false))
	require.NoError(t, WriteConfigFile(path, cfg, true))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	// The generated file is readable by the viper loader too
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	fromViper, err := configs.LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, cfg, fromViper)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
