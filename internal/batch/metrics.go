package batch

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
	"github.com/RyanBlaney/voice-features/pkg/logging"
)

// MetricsCalculator summarizes features across files
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// FeatureStats represents statistical measures of one feature across files
type FeatureStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// Summary holds cross-file statistics of the successful results
type Summary struct {
	Files     int `json:"files" yaml:"files"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`

	// Scalar feature statistics keyed by feature name
	Features map[string]*FeatureStats `json:"features" yaml:"features"`

	// Statistics of each MFCC coefficient
	MFCC []*FeatureStats `json:"mfcc" yaml:"mfcc"`

	TotalAudioSeconds float64 `json:"total_audio_seconds" yaml:"total_audio_seconds"`
}

// Summarize computes statistics over every result without an error.
// A feature that failed in a file is left out of that feature's statistics.
func (mc *MetricsCalculator) Summarize(results []*FileResult) *Summary {
	summary := &Summary{
		Files:    len(results),
		Features: make(map[string]*FeatureStats),
	}

	values := make(map[string][]float64)
	var mfcc [][]float64

	for _, res := range results {
		if res == nil || res.Err != nil || res.Features == nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.TotalAudioSeconds += res.Duration

		fs := res.Features
		for _, key := range fs.Keys() {
			if _, failed := fs.Failures[key]; failed {
				continue
			}
			if key == extractors.KeyMFCC {
				for i, c := range fs.MFCC {
					if i >= len(mfcc) {
						mfcc = append(mfcc, nil)
					}
					mfcc[i] = append(mfcc[i], c)
				}
				continue
			}
			if v, ok := fs.Scalar(key); ok {
				values[key] = append(values[key], v)
			}
		}
	}

	for key, data := range values {
		summary.Features[key] = mc.calculateStats(data)
	}
	for _, data := range mfcc {
		summary.MFCC = append(summary.MFCC, mc.calculateStats(data))
	}

	mc.logger.Debug("Summarized batch results", logging.Fields{
		"files":     summary.Files,
		"succeeded": summary.Succeeded,
		"features":  len(summary.Features),
	})

	return summary
}

// calculateStats calculates statistical measures for a dataset
func (mc *MetricsCalculator) calculateStats(data []float64) *FeatureStats {
	if len(data) == 0 {
		return &FeatureStats{Count: 0}
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	stats := &FeatureStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Mean:   mean,
		StdDev: std,
	}

	return sanitizeStats(stats)
}

// sanitizeStats replaces non-finite values so the summary always serializes
func sanitizeStats(stats *FeatureStats) *FeatureStats {
	for _, v := range []*float64{&stats.Mean, &stats.Median, &stats.P95, &stats.Min, &stats.Max, &stats.StdDev} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			*v = 0
		}
	}
	return stats
}
