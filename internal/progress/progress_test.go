package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// finishes fails the test if Done does not return promptly.
func finishes(t *testing.T, b *Bar) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		b.Done()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Done did not return")
	}
}

func TestBar_CompletesAtCount(t *testing.T) {
	var out bytes.Buffer
	b := New(&out, "Rows", 3)
	for i := 0; i < 3; i++ {
		b.Increment()
	}
	finishes(t, b)
	assert.Contains(t, out.String(), "Rows")
	assert.Contains(t, out.String(), "3 / 3")
}

func TestBar_UnknownTotal(t *testing.T) {
	var out bytes.Buffer
	b := New(&out, "Rows", 0)
	b.Increment()
	finishes(t, b)
	assert.Contains(t, out.String(), "Rows")
}

func TestBar_DoneBeforeTotal(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		increments int
	}{
		{"partial", 5, 2},
		{"none", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			b := New(&out, "Rows", tt.total)
			for i := 0; i < tt.increments; i++ {
				b.Increment()
			}
			finishes(t, b)
			assert.Contains(t, out.String(), "Rows")
		})
	}
}

func TestOf(t *testing.T) {
	assert.Equal(t, Nop{}, Of(nil))

	b := New(&bytes.Buffer{}, "x", 1)
	defer finishes(t, b)
	assert.Same(t, b, Of(b))
}
