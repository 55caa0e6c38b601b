// Package audiotest synthesizes signals and WAV fixtures for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/youpy/go-wav"
)

// Sine returns amplitude*sin(2*pi*freq*t) sampled at rate for duration seconds
func Sine(freq float64, rate int, seconds, amplitude float64) []float64 {
	n := int(math.Round(seconds * float64(rate)))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

// Silence returns seconds of zero samples at rate
func Silence(rate int, seconds float64) []float64 {
	return make([]float64, int(math.Round(seconds*float64(rate))))
}

// WriteWAV writes 16-bit PCM channels (one or two) to dir/name and returns the path
func WriteWAV(t testing.TB, dir, name string, rate int, channels ...[]float64) string {
	t.Helper()

	if len(channels) == 0 || len(channels) > 2 {
		t.Fatalf("WriteWAV supports 1 or 2 channels, got %d", len(channels))
	}

	frames := len(channels[0])
	samples := make([]wav.Sample, frames)
	for i := range samples {
		for ch := range channels {
			samples[i].Values[ch] = toInt16(channels[ch][i])
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	writer := wav.NewWriter(f, uint32(frames), uint16(len(channels)), uint32(rate), 16)
	if err := writer.WriteSamples(samples); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	return path
}

func toInt16(v float64) int {
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * 32767))
}

// Format tags accepted by WritePCMWAV
const (
	FormatTagPCM        uint16 = 1
	FormatTagExtensible uint16 = 0xFFFE
)

// WritePCMWAV writes 16-bit PCM with any number of channels and returns the
// path. The go-wav writer holds two channels per frame, so the RIFF layout
// is written directly.
func WritePCMWAV(t testing.TB, dir, name string, rate int, formatTag uint16, channels ...[]float64) string {
	t.Helper()

	if len(channels) == 0 {
		t.Fatalf("WritePCMWAV needs at least one channel")
	}

	n := len(channels)
	frames := len(channels[0])
	blockAlign := 2 * n
	dataSize := frames * blockAlign

	var buf bytes.Buffer
	le := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("encode %s: %v", name, err)
		}
	}
	buf.WriteString("RIFF")
	le(uint32(36 + dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	le(uint32(16))
	le(formatTag)
	le(uint16(n))
	le(uint32(rate))
	le(uint32(rate * blockAlign))
	le(uint16(blockAlign))
	le(uint16(16))
	buf.WriteString("data")
	le(uint32(dataSize))
	for i := range frames {
		for ch := range channels {
			le(int16(toInt16(channels[ch][i])))
		}
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
