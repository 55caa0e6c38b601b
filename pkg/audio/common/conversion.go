package common

import (
	"encoding/binary"
	"fmt"
)

// IntToFloat scales a signed integer sample of the given bit depth into [-1, 1)
func IntToFloat(v int64, bitsPerSample int) float64 {
	if bitsPerSample <= 0 || bitsPerSample > 32 {
		return 0
	}
	return float64(v) / float64(int64(1)<<(bitsPerSample-1))
}

// DecodeS16LE converts interleaved 16-bit little-endian PCM into per-channel float slices
func DecodeS16LE(data []byte, channels int) ([][]float64, error) {
	return DecodePCMLE(data, channels, 16)
}

// DecodePCMLE converts interleaved little-endian integer PCM of 8, 16, 24 or
// 32 bits into per-channel float slices. 8-bit samples are unsigned.
func DecodePCMLE(data []byte, channels, bitsPerSample int) ([][]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	switch bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitsPerSample)
	}

	width := bitsPerSample / 8
	frameSize := width * channels
	// A trailing partial frame is dropped
	frames := len(data) / frameSize

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		for ch := range channels {
			off := i*frameSize + ch*width
			out[ch][i] = pcmSample(data[off:off+width], bitsPerSample)
		}
	}

	return out, nil
}

func pcmSample(b []byte, bits int) float64 {
	switch bits {
	case 8:
		return float64(int(b[0])-128) / 128.0
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
	case 24:
		v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
		return IntToFloat(int64(v), 24)
	default:
		return IntToFloat(int64(int32(binary.LittleEndian.Uint32(b))), 32)
	}
}

// Downmix averages channels sample-wise into a single channel.
// The result has the per-channel length, truncated to the shortest channel.
func Downmix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		out := make([]float64, len(channels[0]))
		copy(out, channels[0])
		return out
	}

	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}

	out := make([]float64, n)
	scale := 1.0 / float64(len(channels))
	for i := range n {
		sum := 0.0
		for _, ch := range channels {
			sum += ch[i]
		}
		out[i] = sum * scale
	}
	return out
}
