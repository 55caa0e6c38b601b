package common

import (
	"fmt"
	"math"
	"time"
)

// Format identifies an audio container
type Format string

const (
	FormatWAV         Format = "wav"
	FormatMP3         Format = "mp3"
	FormatFLAC        Format = "flac"
	FormatM4A         Format = "m4a"
	FormatAAC         Format = "aac"
	FormatOGG         Format = "ogg"
	FormatOpus        Format = "opus"
	FormatWebM        Format = "webm"
	FormatUnsupported Format = "unsupported"
)

// AudioBuffer holds mono PCM samples in [-1, 1] at a fixed rate
type AudioBuffer struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`

	// Provenance of the decoded file
	Path             string `json:"path,omitempty"`
	Format           Format `json:"format,omitempty"`
	SourceSampleRate int    `json:"source_sample_rate,omitempty"`
	// DecodedChannels counts the decoder's output channels before the downmix.
	// MP3 always decodes to stereo, so it reads 2 for mono MP3 files.
	DecodedChannels int `json:"decoded_channels,omitempty"`
}

// Len returns the number of samples
func (b *AudioBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the playback length of the buffer
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Validate checks the buffer can be analyzed
func (b *AudioBuffer) Validate() error {
	if b == nil {
		return NewAudioError(FormatUnsupported, "", ErrCodeInvalidBuffer, "nil audio buffer", nil)
	}
	if b.SampleRate <= 0 {
		return NewAudioError(b.Format, b.Path, ErrCodeInvalidBuffer,
			fmt.Sprintf("invalid sample rate: %d", b.SampleRate), nil)
	}
	if len(b.Samples) == 0 {
		return NewAudioError(b.Format, b.Path, ErrCodeInvalidBuffer, "audio buffer has no samples", nil)
	}
	return nil
}

// Peak returns the largest absolute sample value
func (b *AudioBuffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	return peak
}
