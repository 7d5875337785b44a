package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a numeric table with a header row.
type Table struct {
	Columns []string
	Rows    [][]float64
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Dataset is a Table split into a feature view and the label column.
type Dataset struct {
	Table        *Table
	Target       string
	FeatureNames []string
	Features     [][]float64
	Labels       []int
}

// NewDataset separates the target column from the remaining feature columns.
func NewDataset(table *Table, target string) (*Dataset, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	targetIdx := table.columnIndex(target)
	if targetIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrTargetMissing, target)
	}
	if len(table.Columns) < 2 {
		return nil, errors.New("no feature columns")
	}

	names := make([]string, 0, len(table.Columns)-1)
	for i, c := range table.Columns {
		if i != targetIdx {
			names = append(names, c)
		}
	}

	features := make([][]float64, len(table.Rows))
	labels := make([]int, len(table.Rows))
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d: expected %d values, got %d", i+1, len(table.Columns), len(row))
		}
		label := row[targetIdx]
		if label != math.Trunc(label) {
			return nil, fmt.Errorf("row %d: label %v is not an integer", i+1, label)
		}
		labels[i] = int(label)

		vec := make([]float64, 0, len(names))
		vec = append(vec, row[:targetIdx]...)
		vec = append(vec, row[targetIdx+1:]...)
		features[i] = vec
	}

	return &Dataset{
		Table:        table,
		Target:       target,
		FeatureNames: names,
		Features:     features,
		Labels:       labels,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Subset returns the rows at the given indices, in that order.
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([][]float64, len(indices))
	features := make([][]float64, len(indices))
	labels := make([]int, len(indices))
	for i, idx := range indices {
		rows[i] = d.Table.Rows[idx]
		features[i] = d.Features[idx]
		labels[i] = d.Labels[idx]
	}
	return &Dataset{
		Table:        &Table{Columns: d.Table.Columns, Rows: rows},
		Target:       d.Target,
		FeatureNames: d.FeatureNames,
		Features:     features,
		Labels:       labels,
	}
}

// WriteHead prints the first n rows of the table with their row index.
func (d *Dataset) WriteHead(w io.Writer, n int) error {
	if n <= 0 || n > len(d.Table.Rows) {
		n = len(d.Table.Rows)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(d.Table.Columns, "\t"))
	for i, row := range d.Table.Rows[:n] {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\t\n", i, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

type loadOptions struct {
	encoding string
	comma    rune
}

// LoadOption customises LoadCSV.
type LoadOption func(*loadOptions)

// WithEncoding sets the character set of the input file (any WHATWG label,
// e.g. "utf-8", "gbk", "windows-1252").
func WithEncoding(name string) LoadOption {
	return func(o *loadOptions) { o.encoding = name }
}

// WithComma sets the field delimiter.
func WithComma(r rune) LoadOption {
	return func(o *loadOptions) { o.comma = r }
}

// LoadCSV reads a headered CSV file into a Dataset whose label column is target.
func LoadCSV(path, target string, opts ...LoadOption) (*Dataset, error) {
	o := loadOptions{encoding: "utf-8", comma: ','}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, dataLoadErr(path, err)
	}
	defer f.Close()

	enc, err := lookupEncoding(o.encoding)
	if err != nil {
		return nil, dataLoadErr(path, err)
	}

	table, err := ReadTable(transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder())), o.comma)
	if err != nil {
		return nil, dataLoadErr(path, err)
	}
	ds, err := NewDataset(table, target)
	if err != nil {
		return nil, dataLoadErr(path, err)
	}
	return ds, nil
}

// ReadTable parses CSV records into a numeric Table.
func ReadTable(r io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{Columns: columns}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(record))
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, columns[i], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d column %s: not a finite number", line, columns[i])
			}
			row[i] = v
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return table, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}
