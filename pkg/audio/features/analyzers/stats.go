package analyzers

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SafeMean returns the arithmetic mean of x, or 0 for an empty slice.
// A non-finite result is reported as 0.
func SafeMean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := stat.Mean(x, nil)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return m
}

// RowMeans returns the SafeMean of every row of m
func RowMeans(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range rows {
		for j := range cols {
			row[j] = m.At(i, j)
		}
		out[i] = SafeMean(row)
	}
	return out
}

// Finite reports whether v is neither NaN nor infinite
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
