package decode

import (
	"context"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

// RawAudio is decoded PCM before downmixing and resampling
type RawAudio struct {
	Channels   [][]float64
	SampleRate int
	Format     common.Format
}

// Frames returns the per-channel sample count
func (r *RawAudio) Frames() int {
	if r == nil || len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0])
}

// FormatDecoder turns one container format into RawAudio
type FormatDecoder interface {
	Format() common.Format
	Decode(ctx context.Context, path string) (*RawAudio, error)
}

// FormatDetector identifies the container of a file
type FormatDetector interface {
	DetectFormat(path string) (common.Format, error)
}
