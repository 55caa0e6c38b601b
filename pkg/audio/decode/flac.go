package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

// FLACDecoder decodes FLAC files frame by frame
type FLACDecoder struct{}

// NewFLACDecoder creates a FLAC decoder
func NewFLACDecoder() *FLACDecoder {
	return &FLACDecoder{}
}

func (d *FLACDecoder) Format() common.Format {
	return common.FormatFLAC
}

func (d *FLACDecoder) Decode(ctx context.Context, path string) (*RawAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAudioError(common.FormatFLAC, path, common.ErrCodeIO, "cannot open file", err)
	}
	defer f.Close()

	stream, err := flac.New(f)
	if err != nil {
		return nil, common.NewAudioError(common.FormatFLAC, path, common.ErrCodeCorruptAudio,
			"invalid FLAC stream", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)
	if channels == 0 || stream.Info.SampleRate == 0 {
		return nil, common.NewAudioError(common.FormatFLAC, path, common.ErrCodeCorruptAudio,
			fmt.Sprintf("invalid FLAC stream info: %d channels at %d Hz", channels, stream.Info.SampleRate), nil)
	}

	out := make([][]float64, channels)
	if n := stream.Info.NSamples; n > 0 {
		for ch := range out {
			out[ch] = make([]float64, 0, n)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.NewAudioError(common.FormatFLAC, path, common.ErrCodeCorruptAudio,
				"failed to decode FLAC frame", err)
		}

		for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
			for _, sample := range frame.Subframes[ch].Samples {
				out[ch] = append(out[ch], common.IntToFloat(int64(sample), bits))
			}
		}
	}

	return &RawAudio{
		Channels:   out,
		SampleRate: int(stream.Info.SampleRate),
		Format:     common.FormatFLAC,
	}, nil
}
