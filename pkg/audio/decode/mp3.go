package decode

import (
	"context"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

// MP3Decoder decodes MPEG-1/2 layer III files.
// go-mp3 always emits 16-bit little-endian stereo, so mono sources arrive duplicated
// and report two decoded channels.
type MP3Decoder struct{}

// NewMP3Decoder creates an MP3 decoder
func NewMP3Decoder() *MP3Decoder {
	return &MP3Decoder{}
}

func (d *MP3Decoder) Format() common.Format {
	return common.FormatMP3
}

func (d *MP3Decoder) Decode(ctx context.Context, path string) (*RawAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAudioError(common.FormatMP3, path, common.ErrCodeIO, "cannot open file", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, common.NewAudioError(common.FormatMP3, path, common.ErrCodeCorruptAudio,
			"invalid MP3 stream", err)
	}

	pcm, err := io.ReadAll(&contextReader{ctx: ctx, r: decoder})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewAudioError(common.FormatMP3, path, common.ErrCodeCorruptAudio,
			"failed to decode MP3 frames", err)
	}

	channels, err := common.DecodeS16LE(pcm, 2)
	if err != nil {
		return nil, common.NewAudioError(common.FormatMP3, path, common.ErrCodeCorruptAudio,
			"failed to convert MP3 samples", err)
	}

	return &RawAudio{
		Channels:   channels,
		SampleRate: decoder.SampleRate(),
		Format:     common.FormatMP3,
	}, nil
}

// contextReader stops a long read once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
