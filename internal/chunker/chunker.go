package chunker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/dgallion1/cmsprep/internal/logging"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

// Params controls window packing. Both values are in characters.
type Params struct {
	Size    int `validate:"gt=0"`
	Overlap int `validate:"gte=0,ltfield=Size"`
}

var validate = validator.New()

// Validate rejects non-positive sizes and overlaps that are not smaller
// than the window.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Field() {
			case "Size":
				return fmt.Errorf("window size must be positive, got %d", p.Size)
			case "Overlap":
				return fmt.Errorf("overlap must be between 0 and the window size %d, got %d", p.Size, p.Overlap)
			}
		}
		return err
	}
	return nil
}

// Window is a run of consecutive sentences from one page. The first
// Overlap sentences repeat the tail of the previous window.
type Window struct {
	Title     string
	Sentences []string
	Overlap   int
}

// Text joins the sentences with single spaces.
func (w Window) Text() string {
	return strings.Join(w.Sentences, " ")
}

// Windows splits text into sentences and packs them greedily.
func Windows(title, text string, p Params) []Window {
	return pack(title, SplitSentences(text), p)
}

// pack makes one forward pass. A sentence is appended while the window's
// character count (joining spaces excluded) stays within p.Size. On
// overflow the window is emitted and the next starts from the trailing
// sentences that fit in p.Overlap, always keeping at least one when
// p.Overlap > 0; that sentence may push the window past p.Size. A sentence
// longer than p.Size is emitted alone.
func pack(title string, sentences []string, p Params) []Window {
	var (
		out     []Window
		cur     []string
		curLen  int
		overlap int
	)

	emit := func() {
		if len(cur) > overlap {
			out = append(out, Window{Title: title, Sentences: cur, Overlap: overlap})
		}
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)

		if n > p.Size {
			emit()
			out = append(out, Window{Title: title, Sentences: []string{s}})
			cur, curLen, overlap = nil, 0, 0
			continue
		}

		if len(cur) > overlap && curLen+n > p.Size {
			emit()
			cur = tail(cur, min(p.Overlap, p.Size-n), p.Overlap > 0)
			curLen = runeSum(cur)
			overlap = len(cur)
		}
		cur = append(cur, s)
		curLen += n
	}
	emit()
	return out
}

// tail returns the longest suffix of sentences whose combined length fits
// in budget. With atLeastOne set the last sentence is kept regardless.
func tail(sentences []string, budget int, atLeastOne bool) []string {
	i := len(sentences)
	total := 0
	for i > 0 {
		n := utf8.RuneCountInString(sentences[i-1])
		if total+n > budget {
			break
		}
		total += n
		i--
	}
	if i == len(sentences) && atLeastOne && len(sentences) > 0 {
		i--
	}
	return append([]string(nil), sentences[i:]...)
}

func runeSum(ss []string) int {
	n := 0
	for _, s := range ss {
		n += utf8.RuneCountInString(s)
	}
	return n
}

// Options tune a Chunk run.
type Options struct {
	Log      *slog.Logger
	Progress progress.Tracker
	// MaxShardBytes overrides the shard ceiling when positive.
	MaxShardBytes int64
}

// Result summarizes a Chunk run.
type Result struct {
	Pages   int
	Windows int
	Shards  []string
}

// Chunk reads page records from r, windows every page and writes the
// windows into chunk_<n>.csv shards under dir.
func Chunk(ctx context.Context, r io.Reader, fs afero.Fs, dir string, p Params, opts Options) (Result, error) {
	var res Result
	if err := p.Validate(); err != nil {
		return res, err
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	track := progress.Of(opts.Progress)

	reader, err := pages.NewReader(r)
	if err != nil {
		return res, err
	}
	if col := reader.TextColumn(); col != pages.ColText {
		log.Info("reading body from alias column", "column", col)
	}

	var shardOpts []ShardOption
	if opts.MaxShardBytes > 0 {
		shardOpts = append(shardOpts, WithMaxBytes(opts.MaxShardBytes))
	}
	shards, err := NewShardWriter(fs, dir, log, shardOpts...)
	if err != nil {
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		for _, w := range Windows(page.Title, page.Text, p) {
			if err := shards.Add(w); err != nil {
				return res, err
			}
			res.Windows++
		}
		res.Pages++
		track.Increment()
	}

	if err := shards.Close(); err != nil {
		return res, err
	}
	res.Shards = shards.Files()
	log.Info("chunking complete", "pages", res.Pages, "windows", res.Windows, "shards", len(res.Shards))
	return res, nil
}
