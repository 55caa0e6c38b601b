package analyzers

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Decibel conversion defaults
const (
	DefaultAmin  = 1e-10
	DefaultTopDB = 80.0
)

// PowerToDB converts power values to decibels relative to 1.0 in place.
// Values below amin are floored to amin; when topDB > 0 the result is clamped
// to at most topDB below the matrix maximum.
func PowerToDB(m *mat.Dense, amin, topDB float64) {
	if amin <= 0 {
		amin = DefaultAmin
	}

	m.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(amin, v))
	}, m)

	if topDB <= 0 {
		return
	}

	floor := mat.Max(m) - topDB
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, floor)
	}, m)
}
