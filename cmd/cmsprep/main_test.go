package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/cmsprep/internal/chunker"
	"github.com/dgallion1/cmsprep/internal/cms"
	"github.com/dgallion1/cmsprep/internal/cms/cmstest"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/render"
)

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("BUTTERCMS_API_KEY", "secret")
	t.Setenv("WEB_HOST", "https://example.com/")
	t.Setenv("BUTTERCMS_BASE_URL", baseURL)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
}

func execute(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--no-progress", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	err := run(context.Background(), args, fs, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func sampleServer(t *testing.T) *cmstest.Server {
	t.Helper()
	srv := cmstest.New("secret")
	t.Cleanup(srv.Close)
	srv.AddPages("documents",
		cms.Page{Slug: "intro", Fields: cms.Fields{Title: "Intro", Text: "<p>First sentence here. Second one follows.</p>"}},
		cms.Page{Slug: "empty", Fields: cms.Fields{Title: "Empty"}},
	)
	srv.AddPages("authors",
		cms.Page{Slug: "jane", Fields: cms.Fields{Title: "Jane", Text: "<p>Jane writes. She edits too.</p>"}},
	)
	return srv
}

func TestFetchCleanChunkRender(t *testing.T) {
	srv := sampleServer(t)
	setEnv(t, srv.URL)
	fs := afero.NewMemMapFs()

	_, _, err := execute(t, fs, "fetch", "--links")
	require.NoError(t, err)

	f, err := fs.Open("buttercms_pages.csv")
	require.NoError(t, err)
	r, err := pages.NewReader(f)
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	f.Close()
	require.Len(t, rows, 3)
	assert.Equal(t, "https://example.com/authors/jane", rows[2].URL)
	assert.Equal(t, "First sentence here. Second one follows.", rows[0].Text)

	links, err := afero.ReadFile(fs, "buttercms_links.json")
	require.NoError(t, err)
	var got struct{ Links []string }
	require.NoError(t, json.Unmarshal(links, &got))
	assert.Len(t, got.Links, 3)

	_, _, err = execute(t, fs, "clean")
	require.NoError(t, err)
	cleaned, err := afero.ReadFile(fs, "cleaned_pages.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(cleaned), "title,cleaned_text\n"))

	stdout, _, err := execute(t, fs, "chunk", "--size", "30", "--overlap", "10")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Total sentences: 4")
	exists, err := afero.Exists(fs, "chunked_output/chunk_1.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	_, _, err = execute(t, fs, "render", "--engine", "gopdf")
	require.NoError(t, err)
	for name, want := range map[string]bool{"document_1.pdf": true, "document_2.pdf": false, "document_3.pdf": true} {
		exists, err := afero.Exists(fs, filepath.Join("output_pdfs", name))
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}
}

func TestFetch_MissingConfig(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	t.Setenv("BUTTERCMS_API_KEY", "")
	_, stderr, err := execute(t, afero.NewMemMapFs(), "fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUTTERCMS_API_KEY is required")
	assert.Contains(t, stderr, "command failed")
}

func TestFetch_NoPagesIsNotAnError(t *testing.T) {
	srv := cmstest.New("secret")
	defer srv.Close()
	setEnv(t, srv.URL)
	fs := afero.NewMemMapFs()

	_, _, err := execute(t, fs, "fetch", "--type", "missing")
	require.NoError(t, err)
	exists, err := afero.Exists(fs, "buttercms_pages.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPage(t *testing.T) {
	srv := sampleServer(t)
	setEnv(t, srv.URL)

	stdout, _, err := execute(t, afero.NewMemMapFs(), "page", "jane")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\n  \"slug\": \"jane\"")

	var p cms.Page
	require.NoError(t, json.Unmarshal([]byte(stdout), &p))
	assert.Equal(t, "Jane", p.Fields.Title)
}

func TestAnalyze(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in.csv", []byte("title,text\nA,\"Four. Five5. Sixsix.\"\n"), 0o644))

	stdout, _, err := execute(t, fs, "analyze", "--input", "in.csv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Median length: 6.00 characters")
	assert.Contains(t, stdout, "Suggested window size: 18")
	assert.Contains(t, stdout, "Suggested overlap: 6")
}

// syncBuffer is shared by the logger and the progress renderer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRender_ConverterFailureWithProgressBar(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	bin := filepath.Join(t.TempDir(), "wkhtmltopdf")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'render failed' >&2\nexit 1\n"), 0o755))
	t.Setenv("WKHTMLTOPDF_PATH", bin)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "in.csv", []byte("title,text\nA,Body one.\nB,Body two.\n"), 0o644))

	var stdout, stderr syncBuffer
	args := []string{"render", "--input", "in.csv", "--env-file", filepath.Join(t.TempDir(), "missing.env")}
	errc := make(chan error, 1)
	go func() {
		errc <- run(context.Background(), args, fs, &stdout, &stderr)
	}()

	select {
	case err := <-errc:
		var cerr *render.ConvertError
		require.True(t, errors.As(err, &cerr), "got %v", err)
		assert.Equal(t, 1, cerr.Row)
	case <-time.After(10 * time.Second):
		t.Fatal("render did not return after the converter failed")
	}
	assert.Contains(t, stderr.String(), "Generating PDFs")
	assert.Contains(t, stderr.String(), "render failed")
}

func TestRender_UnknownEngine(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	_, _, err := execute(t, afero.NewMemMapFs(), "render", "--engine", "nope")
	assert.ErrorContains(t, err, "unknown engine")
}

func TestInvalidMarkupFormat(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	_, _, err := execute(t, afero.NewMemMapFs(), "clean", "--markup", "rtf")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams(" 300 ", "100")
	require.NoError(t, err)
	assert.Equal(t, chunker.Params{Size: 300, Overlap: 100}, p)

	_, err = parseParams("abc", "1")
	assert.Error(t, err)
	_, err = parseParams("100", "100")
	assert.Error(t, err)
}

func TestChunk_InteractiveExcludesExplicitParams(t *testing.T) {
	setEnv(t, "https://api.example.com/v2")
	for _, flag := range []string{"--size", "--overlap"} {
		_, _, err := execute(t, afero.NewMemMapFs(), "chunk", "--interactive", flag, "10")
		require.Error(t, err, flag)
		assert.Contains(t, err.Error(), "none of the others can be")
	}
}

func TestValidateCount(t *testing.T) {
	v := validateCount(1)
	assert.NoError(t, v("5"))
	assert.Error(t, v("0"))
	assert.Error(t, v("x"))
	assert.NoError(t, validateCount(0)("0"))
}
