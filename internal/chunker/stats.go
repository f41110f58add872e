package chunker

import (
	"context"
	"errors"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

// ErrNoSentences is returned by Analyze when the input has no sentences.
var ErrNoSentences = errors.New("no sentences in input")

// Stats describes sentence lengths in characters across a file.
type Stats struct {
	Sentences int     `json:"sentences"`
	Median    float64 `json:"median"`
	Mean      float64 `json:"mean"`
	Max       int     `json:"max"`
}

// Suggest derives window parameters from the median sentence length:
// three sentences per window, one carried over.
func (s Stats) Suggest() Params {
	return Params{Size: int(3 * s.Median), Overlap: int(s.Median)}
}

// Analyze reads page records from r and measures every sentence.
func Analyze(ctx context.Context, r io.Reader, track progress.Tracker) (Stats, error) {
	track = progress.Of(track)
	reader, err := pages.NewReader(r)
	if err != nil {
		return Stats{}, err
	}

	var lengths []int
	for {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		page, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, err
		}
		for _, s := range SplitSentences(page.Text) {
			lengths = append(lengths, utf8.RuneCountInString(s))
		}
		track.Increment()
	}
	return stats(lengths)
}

func stats(lengths []int) (Stats, error) {
	if len(lengths) == 0 {
		return Stats{}, ErrNoSentences
	}
	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)

	sum := 0
	for _, n := range sorted {
		sum += n
	}
	return Stats{
		Sentences: len(sorted),
		Median:    percentile(sorted, 50),
		Mean:      float64(sum) / float64(len(sorted)),
		Max:       sorted[len(sorted)-1],
	}, nil
}

// percentile interpolates linearly between closest ranks. At 50 it is the
// usual median: the middle value, or the mean of the two middle values.
func percentile(sorted []int, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}
