package decode

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

// Detector identifies containers by magic bytes, then by extension
type Detector struct{}

// NewDetector creates a format detector
func NewDetector() *Detector {
	return &Detector{}
}

// DetectFormat opens path and returns its container format
func (d *Detector) DetectFormat(path string) (common.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.FormatUnsupported, common.NewAudioError(
			common.FormatUnsupported, path, common.ErrCodeIO, "cannot open file", err)
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return common.FormatUnsupported, common.NewAudioError(
			common.FormatUnsupported, path, common.ErrCodeIO, "cannot read file header", err)
	}

	if format := detectFromHeader(header[:n]); format != common.FormatUnsupported {
		return format, nil
	}

	if format := common.FormatFromPath(path); format != common.FormatUnsupported {
		return format, nil
	}

	return common.FormatUnsupported, common.NewAudioError(
		common.FormatUnsupported, path, common.ErrCodeUnsupportedFormat,
		"unable to determine audio format from header or extension", nil)
}

// detectFromHeader matches well-known container signatures
func detectFromHeader(b []byte) common.Format {
	switch {
	case len(b) >= 12 && (bytes.Equal(b[0:4], []byte("RIFF")) || bytes.Equal(b[0:4], []byte("RF64"))) &&
		bytes.Equal(b[8:12], []byte("WAVE")):
		return common.FormatWAV
	case len(b) >= 4 && bytes.Equal(b[0:4], []byte("fLaC")):
		return common.FormatFLAC
	case len(b) >= 3 && bytes.Equal(b[0:3], []byte("ID3")):
		return common.FormatMP3
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return common.FormatM4A
	case len(b) >= 4 && bytes.Equal(b[0:4], []byte("OggS")):
		return common.FormatOGG
	case len(b) >= 4 && bytes.Equal(b[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return common.FormatWebM
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xF6 == 0xF0:
		// ADTS sync with layer bits 00
		return common.FormatAAC
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0 && b[1]&0x06 != 0:
		// MPEG audio frame sync
		return common.FormatMP3
	}
	return common.FormatUnsupported
}
