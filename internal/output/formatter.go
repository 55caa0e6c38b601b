package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"text/tabwriter"

	lbcoutput "github.com/RyanBlaney/latency-benchmark-common/output"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Formatter renders command results
type Formatter = lbcoutput.Formatter

// Table is a titled grid of cells
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by results that render as tables
type Tabular interface {
	Tables() []*Table
}

// Recorder is implemented by results that render as flat CSV records,
// the first record being the header
type Recorder interface {
	Records() [][]string
}

// NewFormatter returns the formatter for a format name. JSON and YAML come
// straight from the common output package; CSV and table read the views here.
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &lbcoutput.JSONFormatter{}, nil
	case "yaml", "yml":
		return &lbcoutput.YAMLFormatter{}, nil
	case "csv":
		return &CSVFormatter{}, nil
	case "table", "":
		return &TableFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// CSVFormatter formats flat records as CSV
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	rec, ok := data.(Recorder)
	if !ok {
		return nil, fmt.Errorf("csv output is not supported for %T", data)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rec.Records()); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return buf.Bytes(), nil
}

// TableFormatter formats tables as aligned text
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	tab, ok := data.(Tabular)
	if !ok {
		return nil, fmt.Errorf("table output is not supported for %T", data)
	}

	var buf bytes.Buffer
	for i, t := range tab.Tables() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := writeTable(&buf, t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

var titleCaser = cases.Title(language.English)

// Heading turns a snake_case key into a display heading
func Heading(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func writeTable(buf *bytes.Buffer, t *Table) error {
	if t.Title != "" {
		fmt.Fprintf(buf, "%s\n", t.Title)
	}

	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		headings := make([]string, len(t.Headers))
		rules := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			headings[i] = Heading(h)
			rules[i] = strings.Repeat("-", len(headings[i]))
		}
		fmt.Fprintln(w, strings.Join(headings, "\t"))
		fmt.Fprintln(w, strings.Join(rules, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
