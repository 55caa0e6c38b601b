package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

const (
	wavReadChunk = 4096

	// wavFormatExtensible carries its real encoding in a sub-format GUID
	// that the WAV reader does not parse
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder reads linear PCM RIFF/WAVE files with any number of channels
type WAVDecoder struct {
	// fallback handles non-PCM and extensible encodings (float, A-law,
	// mu-law, WAVE_FORMAT_EXTENSIBLE); may be nil
	fallback FormatDecoder

	// extensiblePCM reads WAVE_FORMAT_EXTENSIBLE as integer PCM. Only set for
	// files whose writer is known, like the converter's intermediate.
	extensiblePCM bool
}

// NewWAVDecoder creates a WAV decoder with an optional fallback for non-PCM payloads
func NewWAVDecoder(fallback FormatDecoder) *WAVDecoder {
	return &WAVDecoder{fallback: fallback}
}

func (d *WAVDecoder) Format() common.Format {
	return common.FormatWAV
}

func (d *WAVDecoder) Decode(ctx context.Context, path string) (*RawAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeIO, "cannot open file", err)
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
			"invalid WAV header", err)
	}

	pcm := format.AudioFormat == wav.AudioFormatPCM ||
		(format.AudioFormat == wavFormatExtensible && d.extensiblePCM)
	if !pcm {
		if d.fallback != nil {
			return d.fallback.Decode(ctx, path)
		}
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported WAV encoding: %d", format.AudioFormat), nil)
	}

	channels := int(format.NumChannels)
	if channels < 1 {
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
			"WAV header declares no channels", nil)
	}

	bits := int(format.BitsPerSample)
	switch bits {
	case 8, 16, 24, 32:
	default:
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported WAV bit depth: %d", bits), nil)
	}

	if format.SampleRate == 0 {
		return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
			"WAV header declares a zero sample rate", nil)
	}

	if channels > 2 {
		// The sample reader holds at most two channels per frame
		if int(format.BlockAlign) != channels*bits/8 {
			return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
				fmt.Sprintf("WAV block align %d does not match %d channels of %d bits",
					format.BlockAlign, channels, bits), nil)
		}
		out, err := readInterleaved(ctx, reader, channels, bits)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
				"failed to read WAV samples", err)
		}
		return &RawAudio{
			Channels:   out,
			SampleRate: int(format.SampleRate),
			Format:     common.FormatWAV,
		}, nil
	}

	out := make([][]float64, channels)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		samples, err := reader.ReadSamples(wavReadChunk)
		for _, s := range samples {
			for ch := range channels {
				out[ch] = append(out[ch], wavSampleToFloat(s.Values[ch], bits))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.NewAudioError(common.FormatWAV, path, common.ErrCodeCorruptAudio,
				"failed to read WAV samples", err)
		}
		if len(samples) == 0 {
			break
		}
	}

	return &RawAudio{
		Channels:   out,
		SampleRate: int(format.SampleRate),
		Format:     common.FormatWAV,
	}, nil
}

// readInterleaved reads the raw data chunk and splits it into channels
func readInterleaved(ctx context.Context, reader *wav.Reader, channels, bits int) ([][]float64, error) {
	var data []byte
	chunk := make([]byte, wavReadChunk*channels*bits/8)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := reader.Read(chunk)
		data = append(data, chunk[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return common.DecodePCMLE(data, channels, bits)
}

// wavSampleToFloat normalizes a raw sample; 8-bit WAV is unsigned
func wavSampleToFloat(v int, bits int) float64 {
	if bits == 8 {
		return float64(v-128) / 128.0
	}
	return common.IntToFloat(int64(v), bits)
}
