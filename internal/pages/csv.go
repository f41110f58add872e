package pages

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyInput is returned when a CSV has no header row.
var ErrEmptyInput = errors.New("csv has no header row")

// Reader reads page records from a CSV with a header row. Columns are
// matched by name, so extra columns and any column order are accepted.
type Reader struct {
	r       *csv.Reader
	index   map[string]int
	textCol string
}

// NewReader consumes the header row and resolves the body column from
// TextAliases. A missing title column yields empty titles.
func NewReader(r io.Reader) (*Reader, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	pr := &Reader{r: reader, index: index}
	for _, alias := range TextAliases {
		if _, ok := index[alias]; ok {
			pr.textCol = alias
			break
		}
	}
	if pr.textCol == "" {
		return nil, fmt.Errorf("missing body column: want one of %s", strings.Join(TextAliases, ", "))
	}
	return pr, nil
}

// TextColumn reports which alias the body column was read from.
func (r *Reader) TextColumn() string {
	return r.textCol
}

// Read returns the next record, or io.EOF when the input is exhausted.
func (r *Reader) Read() (Page, error) {
	record, err := r.r.Read()
	if err != nil {
		if err == io.EOF {
			return Page{}, io.EOF
		}
		return Page{}, fmt.Errorf("read row: %w", err)
	}
	return Page{
		Title: r.cell(record, ColTitle),
		Slug:  r.cell(record, ColSlug),
		URL:   r.cell(record, ColURL),
		Text:  r.cell(record, r.textCol),
	}, nil
}

func (r *Reader) cell(record []string, col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Page, error) {
	var out []Page
	for {
		p, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}

// Writer writes page records under a fixed column schema.
type Writer struct {
	w    *csv.Writer
	cols []string
}

// NewWriter writes the header row immediately.
func NewWriter(w io.Writer, cols []string) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: cw, cols: cols}, nil
}

// Write appends one record.
func (w *Writer) Write(p Page) error {
	row := make([]string, len(w.cols))
	for i, col := range w.cols {
		row[i] = p.field(col)
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

// Flush flushes buffered rows and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
