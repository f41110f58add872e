// Package progress renders per-row progress bars for the command line.
package progress

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker receives one Increment per processed item.
type Tracker interface {
	Increment()
}

// Nop is a Tracker that does nothing.
type Nop struct{}

func (Nop) Increment() {}

// Bar is a single mpb progress bar. A total of 0 means unknown.
type Bar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// New starts a bar writing to out. The bar renders even when out is not a
// terminal.
func New(out io.Writer, name string, total int64) *Bar {
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(60), mpb.WithAutoRefresh())
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO), "done"),
		),
	)
	return &Bar{p: p, bar: bar}
}

func (b *Bar) Increment() {
	b.bar.Increment()
}

// Done finishes the bar and waits for the final render. A bar of unknown
// total completes at its current count; a bar that stopped short of its
// total is aborted in place. Done must be called on every exit path.
func (b *Bar) Done() {
	// SetTotal is a no-op once a positive total is set.
	b.bar.SetTotal(-1, true)
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

// Of returns t, or Nop when t is nil.
func Of(t Tracker) Tracker {
	if t == nil {
		return Nop{}
	}
	return t
}
