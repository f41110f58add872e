package cleaner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/cmsprep/internal/markup"
	"github.com/dgallion1/cmsprep/internal/pages"
)

func readRows(t *testing.T, b []byte) []pages.Page {
	t.Helper()
	r, err := pages.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestClean_PreservesRowsAndOrder(t *testing.T) {
	in := "title,slug,url,text\n" +
		"  One  ,one,u1,\"<p>First <em>page</em></p>\"\n" +
		"Two,two,u2,plain text\n" +
		"Three,three,u3,\n"

	var out bytes.Buffer
	n, err := Clean(context.Background(), strings.NewReader(in), &out, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.True(t, strings.HasPrefix(out.String(), "title,cleaned_text\n"))
	assert.Equal(t, []pages.Page{
		{Title: "One", Text: "First page"},
		{Title: "Two", Text: "plain text"},
		{Title: "Three", Text: ""},
	}, readRows(t, out.Bytes()))
}

func TestClean_AcceptsCleanedTextColumn(t *testing.T) {
	in := "title,cleaned_text\nA,<b>x</b>\n"
	var out bytes.Buffer
	n, err := Clean(context.Background(), strings.NewReader(in), &out, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []pages.Page{{Title: "A", Text: "x"}}, readRows(t, out.Bytes()))
}

type brokenExtractor struct{}

func (brokenExtractor) Extract(string) (string, error) { return "", errors.New("unparseable") }

func TestClean_FailedExtractionKeepsRaw(t *testing.T) {
	in := "title,text\nA,\"<p>keep <i>me</p>\"\nB,\"<div>also</div>\"\n"
	var out bytes.Buffer
	_, err := Clean(context.Background(), strings.NewReader(in), &out, Options{
		Stripper: markup.NewStripper(brokenExtractor{}, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, []pages.Page{
		{Title: "A", Text: "<p>keep <i>me</p>"},
		{Title: "B", Text: "<div>also</div>"},
	}, readRows(t, out.Bytes()))
}

func TestClean_DeeplyNestedMarkupFallsBack(t *testing.T) {
	raw := strings.Repeat("<div>", 600) + "deep"
	in := "title,text\nA," + raw + "\n"
	var out bytes.Buffer
	n, err := Clean(context.Background(), strings.NewReader(in), &out, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, raw, readRows(t, out.Bytes())[0].Text)
}

type counter struct{ n int }

func (c *counter) Increment() { c.n++ }

func TestClean_ReportsProgress(t *testing.T) {
	c := &counter{}
	in := "title,text\nA,a\nB,b\n"
	_, err := Clean(context.Background(), strings.NewReader(in), &bytes.Buffer{}, Options{Progress: c})
	require.NoError(t, err)
	assert.Equal(t, 2, c.n)
}

func TestClean_Errors(t *testing.T) {
	_, err := Clean(context.Background(), strings.NewReader(""), &bytes.Buffer{}, Options{})
	assert.ErrorIs(t, err, pages.ErrEmptyInput)

	_, err = Clean(context.Background(), strings.NewReader("title,body\nA,b\n"), &bytes.Buffer{}, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Clean(ctx, strings.NewReader("title,text\nA,b\n"), &bytes.Buffer{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
