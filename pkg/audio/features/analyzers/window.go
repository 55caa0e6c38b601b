package analyzers

import (
	"fmt"
	"math"
	"sync"

	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
)

// WindowType represents different window functions
type WindowType int

const (
	WindowHann WindowType = iota
	WindowHamming
	WindowBlackman
	WindowNuttall
	WindowRectangular
	WindowBlackmanHarris
)

func (w WindowType) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowNuttall:
		return "nuttall"
	case WindowRectangular:
		return "rectangular"
	case WindowBlackmanHarris:
		return "blackman-harris"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// WindowConfig describes a window to generate
type WindowConfig struct {
	Type WindowType
	Size int
	// Symmetric uses N-1 in the denominator (filter design); periodic (false) suits STFT
	Symmetric bool
}

// Window is a precomputed set of window coefficients
type Window struct {
	Type         WindowType
	Coefficients []float64
}

// ApplyInPlace multiplies frame by the window
func (w *Window) ApplyInPlace(frame []float64) error {
	if len(frame) != len(w.Coefficients) {
		return fmt.Errorf("frame length %d does not match window length %d", len(frame), len(w.Coefficients))
	}
	for i, c := range w.Coefficients {
		frame[i] *= c
	}
	return nil
}

// WindowGenerator builds windows and caches them by configuration
type WindowGenerator struct {
	mu    sync.Mutex
	cache map[WindowConfig]*Window
}

// NewWindowGenerator creates a window generator
func NewWindowGenerator() *WindowGenerator {
	return &WindowGenerator{cache: make(map[WindowConfig]*Window)}
}

// Generate returns the window for cfg. The returned window must not be modified.
func (g *WindowGenerator) Generate(cfg *WindowConfig) (*Window, error) {
	if cfg == nil || cfg.Size <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if w, ok := g.cache[*cfg]; ok {
		return w, nil
	}

	coeffs, err := windowCoefficients(cfg.Type, cfg.Size, cfg.Symmetric)
	if err != nil {
		return nil, err
	}

	w := &Window{Type: cfg.Type, Coefficients: coeffs}
	g.cache[*cfg] = w
	return w, nil
}

// coefficientWindow is the part of the sonar window types used here
type coefficientWindow interface {
	GetCoefficients() []float64
}

func windowCoefficients(t WindowType, n int, symmetric bool) ([]float64, error) {
	if n == 1 {
		return []float64{1}, nil
	}

	var w coefficientWindow
	switch t {
	case WindowHann:
		w = windowing.NewHann(n, symmetric)
	case WindowHamming:
		w = windowing.NewHamming(n, symmetric)
	case WindowBlackman:
		w = windowing.NewBlackman(n, symmetric)
	case WindowBlackmanHarris:
		w = windowing.NewBlackmanHarris(n, symmetric)
	case WindowRectangular:
		w = windowing.NewRectangular(n)
	case WindowNuttall:
		return nuttall(n, symmetric), nil
	default:
		return nil, fmt.Errorf("unknown window type: %s", t)
	}
	return w.GetCoefficients(), nil
}

// nuttall is the four-term window WORLD's DIO filters with; sonar has no
// Nuttall variant.
func nuttall(n int, symmetric bool) []float64 {
	denom := float64(n)
	if symmetric {
		denom = float64(n - 1)
	}

	out := make([]float64, n)
	for i := range out {
		x := 2 * math.Pi * float64(i) / denom
		out[i] = 0.355768 - 0.487396*math.Cos(x) + 0.144232*math.Cos(2*x) - 0.012604*math.Cos(3*x)
	}
	return out
}
