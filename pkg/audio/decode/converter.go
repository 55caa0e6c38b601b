package decode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

const intermediateName = "converted.wav"

// Converter decodes containers without a native Go decoder by having ffmpeg
// write a 16-bit PCM WAV into a private temp directory, then reading that WAV.
type Converter struct {
	format  common.Format
	binary  string
	tempDir string
	logger  logging.Logger
}

// NewConverter creates an ffmpeg-backed decoder reporting the given format
func NewConverter(format common.Format, cfg *Config) *Converter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Converter{
		format:  format,
		binary:  cfg.ConverterPath,
		tempDir: cfg.TempDir,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_converter",
			"format":    string(format),
		}),
	}
}

func (c *Converter) Format() common.Format {
	return c.format
}

func (c *Converter) Decode(ctx context.Context, path string) (*RawAudio, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, common.NewAudioError(c.format, path, common.ErrCodeIO, "cannot open file", err)
	}

	binary, err := exec.LookPath(c.binary)
	if err != nil {
		return nil, common.NewAudioError(c.format, path, common.ErrCodeUnsupportedFormat,
			"no decoder available: converter not found", err)
	}

	dir, err := os.MkdirTemp(c.tempDir, "voice-features-*")
	if err != nil {
		return nil, common.NewAudioError(c.format, path, common.ErrCodeIO,
			"cannot create temporary directory", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn("Failed to remove converter directory", logging.Fields{
				"dir":   dir,
				"error": err.Error(),
			})
		}
	}()

	out := filepath.Join(dir, intermediateName)
	cmd := exec.CommandContext(ctx, binary,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", path,
		"-vn",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("Converting to intermediate WAV", logging.Fields{
		"input":  path,
		"output": out,
	})

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "converter failed"
		}
		return nil, common.NewAudioErrorWithFields(c.format, path, common.ErrCodeCorruptAudio,
			msg, err, logging.Fields{"converter": binary})
	}

	raw, err := (&WAVDecoder{extensiblePCM: true}).Decode(ctx, out)
	if err != nil {
		var ae *common.AudioError
		if errors.As(err, &ae) {
			// Report against the caller's file, not the intermediate
			ae.Path = path
			ae.Format = c.format
		}
		return nil, err
	}

	raw.Format = c.format
	return raw, nil
}
