// Package cleaner rewrites a page CSV with markup stripped from every body.
package cleaner

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/dgallion1/cmsprep/internal/logging"
	"github.com/dgallion1/cmsprep/internal/markup"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

type Options struct {
	Stripper *markup.Stripper
	Log      *slog.Logger
	Progress progress.Tracker
}

// Clean reads page records from r and writes title,cleaned_text rows to w,
// one per input row and in the same order. A body whose markup cannot be
// parsed is written unchanged. It returns the number of rows written.
func Clean(ctx context.Context, r io.Reader, w io.Writer, opts Options) (int, error) {
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
		return 0, err
	}
	if col := reader.TextColumn(); col != pages.ColText {
		log.Info("reading body from alias column", "column", col)
	}
	writer, err := pages.NewWriter(w, pages.CleanColumns)
	if err != nil {
		return 0, err
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		p, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		if err := writer.Write(pages.Page{
			Title: strings.TrimSpace(p.Title),
			Text:  strip.Strip(p.Text),
		}); err != nil {
			return n, err
		}
		n++
		track.Increment()
	}
	if err := writer.Flush(); err != nil {
		return n, err
	}
	log.Info("cleaned pages", "rows", n)
	return n, nil
}
