package decode

import (
	"fmt"
	"slices"
	"sync"

	"github.com/RyanBlaney/voice-features/pkg/audio/common"
)

// Factory maps container formats to decoder constructors
type Factory struct {
	decoders map[common.Format]func() FormatDecoder
	detector FormatDetector
	mu       sync.RWMutex
}

// NewFactory creates a factory with the built-in decoders registered
func NewFactory(cfg *Config) *Factory {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	f := &Factory{
		decoders: make(map[common.Format]func() FormatDecoder),
		detector: NewDetector(),
	}

	// Native decoders
	f.RegisterDecoderFactory(common.FormatWAV, func() FormatDecoder {
		return NewWAVDecoder(NewConverter(common.FormatWAV, cfg))
	})
	f.RegisterDecoderFactory(common.FormatMP3, func() FormatDecoder {
		return NewMP3Decoder()
	})
	f.RegisterDecoderFactory(common.FormatFLAC, func() FormatDecoder {
		return NewFLACDecoder()
	})

	// Containers that go through the external converter
	for _, format := range []common.Format{
		common.FormatM4A, common.FormatAAC, common.FormatOGG, common.FormatOpus, common.FormatWebM,
	} {
		f.RegisterDecoderFactory(format, func() FormatDecoder {
			return NewConverter(format, cfg)
		})
	}

	return f
}

// CreateDecoder creates a decoder for the given format
func (f *Factory) CreateDecoder(format common.Format) (FormatDecoder, error) {
	f.mu.RLock()
	decoderFactory, exists := f.decoders[format]
	f.mu.RUnlock()

	if !exists {
		return nil, common.NewAudioError(
			format, "", common.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported audio format: %s", format),
			nil,
		)
	}

	return decoderFactory(), nil
}

// DetectAndCreate detects the file format and creates the matching decoder
func (f *Factory) DetectAndCreate(path string) (FormatDecoder, error) {
	f.mu.RLock()
	detector := f.detector
	f.mu.RUnlock()

	format, err := detector.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	decoder, err := f.CreateDecoder(format)
	if err != nil {
		if ae, ok := err.(*common.AudioError); ok {
			ae.Path = path
		}
		return nil, err
	}

	return decoder, nil
}

// RegisterDecoderFactory registers or replaces the constructor for a format
func (f *Factory) RegisterDecoderFactory(format common.Format, factory func() FormatDecoder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.decoders[format] = factory
}

// SetDetector replaces the format detector
func (f *Factory) SetDetector(detector FormatDetector) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detector = detector
}

// SupportedFormats returns the registered formats in sorted order
func (f *Factory) SupportedFormats() []common.Format {
	f.mu.RLock()
	defer f.mu.RUnlock()

	formats := make([]common.Format, 0, len(f.decoders))
	for format := range f.decoders {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}
