// Package render turns page records into one PDF per row.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/spf13/afero"

	"github.com/dgallion1/cmsprep/internal/logging"
	"github.com/dgallion1/cmsprep/internal/markup"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

// ConvertError reports a converter failure for one row. It aborts the run.
type ConvertError struct {
	Row  int // 1-based data row
	Path string
	Err  error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("convert row %d to %s: %v", e.Row, e.Path, e.Err)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// FileName is the output name for the given 1-based row.
func FileName(row int) string {
	return fmt.Sprintf("document_%d.pdf", row)
}

type Options struct {
	Stripper *markup.Stripper
	Log      *slog.Logger
	Progress progress.Tracker
}

// Result summarizes a Render run.
type Result struct {
	Written []string
	Skipped int // rows with no text after stripping
}

// Render reads page records from r and writes document_<row>.pdf into dir
// for every row with text. Rows whose stripped text is blank are logged and
// skipped. The first converter failure stops the run with a *ConvertError.
func Render(ctx context.Context, r io.Reader, fs afero.Fs, dir string, conv Converter, opts Options) (Result, error) {
	var res Result
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	strip := opts.Stripper
	if strip == nil {
		strip = markup.NewStripper(nil, log)
	}
	track := progress.Of(opts.Progress)

	reader, err := pages.NewReader(r)
	if err != nil {
		return res, err
	}
	if col := reader.TextColumn(); col != pages.ColText {
		log.Info("reading body from alias column", "column", col)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir %s: %w", dir, err)
	}

	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		doc := Document{Title: p.Title, Text: strip.Strip(p.Text)}
		if strings.TrimSpace(doc.Text) == "" {
			log.Error("page has no content, skipping", "row", row, "title", p.Title)
			res.Skipped++
			track.Increment()
			continue
		}

		path := filepath.Join(dir, FileName(row))
		if err := convertTo(ctx, fs, path, conv, doc); err != nil {
			log.Error("PDF conversion failed", "row", row, "file", path, "error", err)
			return res, &ConvertError{Row: row, Path: path, Err: err}
		}
		res.Written = append(res.Written, path)

		if n, size, err := Verify(fs, path); err != nil {
			log.Error("PDF generation failed or file is empty", "file", path, "error", err)
		} else {
			log.Info("PDF generated", "file", path, "bytes", size, "pages", n)
		}
		track.Increment()
	}

	log.Info("PDF generation complete", "written", len(res.Written), "skipped", res.Skipped)
	return res, nil
}

// convertTo writes the converter's output to path, removing the file again
// if conversion fails.
func convertTo(ctx context.Context, fs afero.Fs, path string, conv Converter, doc Document) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	if err := conv.Convert(ctx, doc, f); err != nil {
		f.Close()
		_ = fs.Remove(path)
		return err
	}
	return f.Close()
}

// ErrEmptyPDF is returned by Verify for a zero-length file.
var ErrEmptyPDF = errors.New("pdf file is empty")

// Verify checks that path holds a readable PDF with at least one page and
// returns the page count and file size.
func Verify(fs afero.Fs, path string) (pageCount int, size int64, err error) {
	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			pageCount, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, 0, err
	}
	size = int64(len(b))
	if size == 0 {
		return 0, 0, ErrEmptyPDF
	}
	rd, err := pdflib.NewReader(bytes.NewReader(b), size)
	if err != nil {
		return 0, size, fmt.Errorf("parse pdf: %w", err)
	}
	n := rd.NumPage()
	if n < 1 {
		return 0, size, fmt.Errorf("pdf has no pages")
	}
	return n, size, nil
}
