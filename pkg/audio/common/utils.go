package common

import (
	"path/filepath"
	"strings"
)

// NormalizeFormatName maps extensions and codec names onto a Format
func NormalizeFormatName(name string) Format {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, ".")

	switch name {
	case "wav", "wave":
		return FormatWAV
	case "mp3", "mpeg", "mpga":
		return FormatMP3
	case "flac":
		return FormatFLAC
	case "m4a", "mp4", "mp4a", "alac":
		return FormatM4A
	case "aac":
		return FormatAAC
	case "ogg", "oga", "vorbis":
		return FormatOGG
	case "opus":
		return FormatOpus
	case "webm", "weba":
		return FormatWebM
	default:
		return FormatUnsupported
	}
}

// FormatFromPath guesses a Format from a file extension
func FormatFromPath(path string) Format {
	return NormalizeFormatName(filepath.Ext(path))
}
