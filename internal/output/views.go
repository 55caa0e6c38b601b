package output

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	lbcoutput "github.com/RyanBlaney/latency-benchmark-common/output"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/voice-features/internal/batch"
	"github.com/RyanBlaney/voice-features/pkg/audio/common"
	"github.com/RyanBlaney/voice-features/pkg/audio/features/extractors"
)

// ReportView is the rendered shape of a batch report
type ReportView struct {
	Results   []*batch.FileResult `json:"results" yaml:"results"`
	Summary   *batch.Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	StartTime time.Time           `json:"start_time" yaml:"start_time"`
	EndTime   time.Time           `json:"end_time" yaml:"end_time"`
}

// NewReportView renders report, keeping the cross-file summary only when requested
func NewReportView(report *batch.Report, summary bool) *ReportView {
	view := &ReportView{
		Results:   report.Results,
		StartTime: report.StartTime,
		EndTime:   report.EndTime,
	}
	if summary {
		view.Summary = report.Summary
	}
	return view
}

// Tables renders one feature table per file and the optional summary
func (v *ReportView) Tables() []*Table {
	var tables []*Table

	for _, res := range v.Results {
		t := &Table{
			Title:   res.Path,
			Headers: []string{"feature", "value"},
		}
		if res.Err != nil || res.Features == nil {
			t.Rows = append(t.Rows, []string{"error", res.Error})
			tables = append(tables, t)
			continue
		}

		t.Rows = append(t.Rows, []string{"Duration", lbcoutput.FormatDuration(secondsToDuration(res.Duration))})
		fs := res.Features
		for _, key := range fs.Keys() {
			value := formatValue(fs, key)
			if reason, failed := fs.Failures[key]; failed {
				value += " (failed: " + reason + ")"
			}
			t.Rows = append(t.Rows, []string{key, value})
		}
		tables = append(tables, t)
	}

	if v.Summary != nil {
		tables = append(tables, summaryTable(v.Summary))
	}

	return tables
}

// Records renders one CSV row per file, expanding the MFCC vector into columns
func (v *ReportView) Records() [][]string {
	coefficients := 0
	for _, res := range v.Results {
		if res.Features != nil {
			coefficients = max(coefficients, len(res.Features.MFCC))
		}
	}

	header := []string{"path", "duration_seconds", "error"}
	for i := range coefficients {
		header = append(header, fmt.Sprintf("mfcc_%d", i))
	}
	scalars := extractors.FeatureKeys()[1:]
	for _, key := range scalars {
		header = append(header, csvColumn(key))
	}

	records := [][]string{header}
	for _, res := range v.Results {
		row := []string{res.Path, formatFloat(res.Duration), res.Error}
		for i := range coefficients {
			cell := ""
			if res.Features != nil && i < len(res.Features.MFCC) {
				cell = formatFloat(res.Features.MFCC[i])
			}
			row = append(row, cell)
		}
		for _, key := range scalars {
			cell := ""
			if res.Features != nil {
				if val, ok := res.Features.Scalar(key); ok {
					cell = formatFloat(val)
				}
			}
			row = append(row, cell)
		}
		records = append(records, row)
	}

	return records
}

func summaryTable(s *batch.Summary) *Table {
	t := &Table{
		Title: fmt.Sprintf("Summary: %d files, %d succeeded, %d failed, %s of audio",
			s.Files, s.Succeeded, s.Failed, lbcoutput.FormatDuration(secondsToDuration(s.TotalAudioSeconds))),
		Headers: []string{"feature", "mean", "median", "p95", "min", "max", "std_dev", "count"},
	}

	keys := make([]string, 0, len(s.Features))
	for k := range s.Features {
		keys = append(keys, k)
	}
	order := make(map[string]int)
	for i, k := range extractors.FeatureKeys() {
		order[k] = i
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })

	for i, st := range s.MFCC {
		t.Rows = append(t.Rows, statsRow(fmt.Sprintf("%s[%d]", extractors.KeyMFCC, i), st))
	}
	for _, k := range keys {
		t.Rows = append(t.Rows, statsRow(k, s.Features[k]))
	}

	return t
}

func statsRow(name string, st *batch.FeatureStats) []string {
	return []string{
		name,
		formatFloat(st.Mean),
		formatFloat(st.Median),
		formatFloat(st.P95),
		formatFloat(st.Min),
		formatFloat(st.Max),
		formatFloat(st.StdDev),
		lbcoutput.ConvertValueToString(st.Count),
	}
}

// BufferInfo describes a decoded analysis buffer.
//
// DecodedChannels is the channel count the decoder produced before the
// downmix. It matches the file for WAV, FLAC and ffmpeg input, but MP3 is
// always decoded as stereo, so a mono MP3 reports 2.
type BufferInfo struct {
	Path             string        `json:"path" yaml:"path"`
	Format           common.Format `json:"format" yaml:"format"`
	SourceSampleRate int           `json:"source_sample_rate" yaml:"source_sample_rate"`
	DecodedChannels  int           `json:"decoded_channels" yaml:"decoded_channels"`
	SampleRate       int           `json:"sample_rate" yaml:"sample_rate"`
	Samples          int           `json:"samples" yaml:"samples"`
	DurationSeconds  float64       `json:"duration_seconds" yaml:"duration_seconds"`
	Peak             float64       `json:"peak" yaml:"peak"`
	RMS              float64       `json:"rms" yaml:"rms"`
}

// NewBufferInfo measures buf
func NewBufferInfo(buf *common.AudioBuffer) *BufferInfo {
	info := &BufferInfo{
		Path:             buf.Path,
		Format:           buf.Format,
		SourceSampleRate: buf.SourceSampleRate,
		DecodedChannels:  buf.DecodedChannels,
		SampleRate:       buf.SampleRate,
		Samples:          buf.Len(),
		DurationSeconds:  buf.Duration().Seconds(),
		Peak:             buf.Peak(),
	}
	if n := buf.Len(); n > 0 {
		info.RMS = math.Sqrt(floats.Dot(buf.Samples, buf.Samples) / float64(n))
	}
	return info
}

func (b *BufferInfo) fields() [][]string {
	return [][]string{
		{"path", b.Path},
		{"format", string(b.Format)},
		{"source_sample_rate", lbcoutput.ConvertValueToString(b.SourceSampleRate)},
		{"decoded_channels", lbcoutput.ConvertValueToString(b.DecodedChannels)},
		{"sample_rate", lbcoutput.ConvertValueToString(b.SampleRate)},
		{"samples", lbcoutput.ConvertValueToString(b.Samples)},
		{"duration_seconds", formatFloat(b.DurationSeconds)},
		{"peak", formatFloat(b.Peak)},
		{"rms", formatFloat(b.RMS)},
	}
}

func (b *BufferInfo) Tables() []*Table {
	t := &Table{Title: b.Path, Headers: []string{"property", "value"}}
	for _, f := range b.fields() {
		t.Rows = append(t.Rows, []string{Heading(f[0]), f[1]})
	}
	return []*Table{t}
}

func (b *BufferInfo) Records() [][]string {
	var header, row []string
	for _, f := range b.fields() {
		header = append(header, f[0])
		row = append(row, f[1])
	}
	return [][]string{header, row}
}

func formatValue(fs *extractors.FeatureSet, key string) string {
	if key == extractors.KeyMFCC {
		parts := make([]string, len(fs.MFCC))
		for i, c := range fs.MFCC {
			parts[i] = strconv.FormatFloat(c, 'f', 2, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	v, _ := fs.Scalar(key)
	return formatFloat(v)
}

func formatFloat(v float64) string {
	return lbcoutput.ConvertValueToString(v)
}

// csvColumn turns a display key into a snake_case column name
func csvColumn(key string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
