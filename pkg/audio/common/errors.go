package common

import (
	"errors"

	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// Error codes shared by the decoder and the extractor
const (
	ErrCodeIO                = "IO_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeCorruptAudio      = "CORRUPT_AUDIO"
	ErrCodeInvalidBuffer     = "INVALID_BUFFER"
)

// Sentinels for errors.Is. An *AudioError matches the sentinel of its code.
var (
	ErrIO                = errors.New("audio file unreadable")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrCorruptAudio      = errors.New("corrupt audio")
	ErrInvalidBuffer     = errors.New("invalid audio buffer")
)

var sentinels = map[string]error{
	ErrCodeIO:                ErrIO,
	ErrCodeUnsupportedFormat: ErrUnsupportedFormat,
	ErrCodeCorruptAudio:      ErrCorruptAudio,
	ErrCodeInvalidBuffer:     ErrInvalidBuffer,
}

// AudioError represents decoding and extraction errors
type AudioError struct {
	Format  Format         `json:"format,omitempty"`
	Path    string         `json:"path,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Fields  logging.Fields `json:"fields,omitempty"`
}

func (e *AudioError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *AudioError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code
func (e *AudioError) Is(target error) bool {
	if t, ok := target.(*AudioError); ok {
		return t.Code == e.Code
	}
	return sentinels[e.Code] == target
}

// NewAudioError creates a new audio error
func NewAudioError(format Format, path, code, message string, cause error) *AudioError {
	return &AudioError{
		Format:  format,
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAudioErrorWithFields creates an audio error carrying extra log context
func NewAudioErrorWithFields(format Format, path, code, message string, cause error, fields logging.Fields) *AudioError {
	err := NewAudioError(format, path, code, message, cause)
	err.Fields = fields
	return err
}

// ErrorCode returns the code of the first AudioError in err's chain, or ""
func ErrorCode(err error) string {
	var ae *AudioError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
