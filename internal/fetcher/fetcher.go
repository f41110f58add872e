// Package fetcher pulls pages from the CMS and writes them as a page CSV.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/dgallion1/cmsprep/internal/cms"
	"github.com/dgallion1/cmsprep/internal/logging"
	"github.com/dgallion1/cmsprep/internal/markup"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

// DefaultPageTypes are fetched when none are given.
var DefaultPageTypes = []string{"documents", "authors"}

// ErrNoPages is returned by Run when every page type came back empty.
var ErrNoPages = errors.New("no pages were fetched")

// PageSource lists every page of a type. *cms.Client implements it.
type PageSource interface {
	FetchPages(ctx context.Context, pageType string) ([]cms.Page, error)
}

// Fetched is one API page tagged with the type it was listed under.
type Fetched struct {
	Type string
	Page cms.Page
}

// PageURL joins the web host, page type and slug.
func PageURL(host, pageType, slug string) string {
	return strings.TrimRight(host, "/") + "/" + pageType + "/" + slug
}

type Fetcher struct {
	src   PageSource
	host  string
	strip *markup.Stripper
	log   *slog.Logger
}

func New(src PageSource, host string, strip *markup.Stripper, log *slog.Logger) *Fetcher {
	if strip == nil {
		strip = markup.NewStripper(nil, log)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Fetcher{src: src, host: host, strip: strip, log: log}
}

// Fetch lists each page type in order. A failing type is logged and
// contributes whatever pages arrived before the failure; only context
// cancellation stops the loop.
func (f *Fetcher) Fetch(ctx context.Context, types []string) ([]Fetched, error) {
	if len(types) == 0 {
		types = DefaultPageTypes
	}
	var out []Fetched
	for _, t := range types {
		list, err := f.src.FetchPages(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			var statusErr *cms.StatusError
			if errors.As(err, &statusErr) {
				f.log.Error("failed to fetch pages", "type", t, "status", statusErr.StatusCode, "page", statusErr.Page)
			} else {
				f.log.Error("failed to fetch pages", "type", t, "error", err)
			}
		}
		for _, p := range list {
			out = append(out, Fetched{Type: t, Page: p})
		}
		f.log.Info("fetched pages", "type", t, "count", len(list))
	}
	return out, nil
}

// Record converts an API page into a page record with cleaned text.
func (f *Fetcher) Record(item Fetched) pages.Page {
	return pages.Page{
		Title: strings.TrimSpace(item.Page.Fields.Title),
		Slug:  item.Page.Slug,
		URL:   PageURL(f.host, item.Type, item.Page.Slug),
		Text:  f.strip.Strip(item.Page.Fields.Text),
	}
}

// Options configure Run.
type Options struct {
	Types     []string
	CSVPath   string
	LinksPath string // links JSON is written only when set
	// NewTracker is called once the page count is known.
	NewTracker func(total int) progress.Tracker
}

// Result summarizes a Run.
type Result struct {
	Pages int
	URLs  []string
}

// Run fetches every type, converts the pages and writes the CSV, plus the
// links file when requested. Nothing is written when no page was fetched.
func (f *Fetcher) Run(ctx context.Context, fs afero.Fs, opts Options) (Result, error) {
	var res Result
	items, err := f.Fetch(ctx, opts.Types)
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		f.log.Warn("No pages were fetched.")
		return res, ErrNoPages
	}

	var track progress.Tracker
	if opts.NewTracker != nil {
		track = opts.NewTracker(len(items))
	}
	track = progress.Of(track)

	file, err := fs.Create(opts.CSVPath)
	if err != nil {
		return res, fmt.Errorf("create %s: %w", opts.CSVPath, err)
	}
	defer file.Close()

	w, err := pages.NewWriter(file, pages.FetchColumns)
	if err != nil {
		return res, err
	}
	for _, item := range items {
		rec := f.Record(item)
		if err := w.Write(rec); err != nil {
			return res, err
		}
		res.URLs = append(res.URLs, rec.URL)
		track.Increment()
	}
	if err := w.Flush(); err != nil {
		return res, err
	}
	if err := file.Close(); err != nil {
		return res, fmt.Errorf("close %s: %w", opts.CSVPath, err)
	}
	res.Pages = len(items)
	f.log.Info("page CSV written", "file", opts.CSVPath, "pages", res.Pages)

	if opts.LinksPath != "" {
		if err := WriteLinks(fs, opts.LinksPath, res.URLs); err != nil {
			return res, err
		}
		f.log.Info("links file written", "file", opts.LinksPath, "urls", len(res.URLs))
	}
	return res, nil
}

type linksFile struct {
	Links []string `json:"links"`
}

// WriteLinks writes {"links": [...]} indented by two spaces.
func WriteLinks(fs afero.Fs, path string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.MarshalIndent(linksFile{Links: urls}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}
	if err := afero.WriteFile(fs, path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
