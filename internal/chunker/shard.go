package chunker

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dgallion1/cmsprep/internal/pages"
)

// MaxShardBytes is the running-estimate ceiling at which a shard is written.
const MaxShardBytes int64 = 10 * 1024 * 1024

// rowOverhead is the length of "{'title': '', 'text': ''}".
const rowOverhead = 25

// EstimateRowSize approximates a row's serialized size as the byte length
// of its dict-style rendering.
func EstimateRowSize(title, text string) int64 {
	return int64(rowOverhead + len(title) + len(text))
}

type ShardOption func(*ShardWriter)

// WithMaxBytes sets the shard ceiling.
func WithMaxBytes(n int64) ShardOption {
	return func(s *ShardWriter) { s.limit = n }
}

// ShardWriter buffers windows and writes them to numbered CSV files once the
// running size estimate reaches the ceiling. A shard may exceed the ceiling
// by at most the last row's estimate.
type ShardWriter struct {
	fs    afero.Fs
	dir   string
	log   *slog.Logger
	limit int64

	rows  []pages.Page
	size  int64
	next  int
	files []string
}

// NewShardWriter creates dir if needed.
func NewShardWriter(fs afero.Fs, dir string, log *slog.Logger, opts ...ShardOption) (*ShardWriter, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	s := &ShardWriter{fs: fs, dir: dir, log: log, limit: MaxShardBytes, next: 1}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Add buffers one window and flushes the shard if the ceiling is reached.
func (s *ShardWriter) Add(w Window) error {
	text := w.Text()
	s.rows = append(s.rows, pages.Page{Title: w.Title, Text: text})
	s.size += EstimateRowSize(w.Title, text)
	if s.size >= s.limit {
		return s.flush()
	}
	return nil
}

// Close writes any buffered rows as the final shard.
func (s *ShardWriter) Close() error {
	if len(s.rows) == 0 {
		return nil
	}
	return s.flush()
}

// Files lists the shard paths written so far, in order.
func (s *ShardWriter) Files() []string {
	return append([]string(nil), s.files...)
}

func (s *ShardWriter) flush() error {
	path := filepath.Join(s.dir, fmt.Sprintf("chunk_%d.csv", s.next))
	f, err := s.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create shard: %w", err)
	}

	w, err := pages.NewWriter(f, pages.ShardColumns)
	if err != nil {
		f.Close()
		return fmt.Errorf("shard %s: %w", path, err)
	}
	for _, row := range s.rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("shard %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("shard %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close shard %s: %w", path, err)
	}

	var mb float64
	if info, err := s.fs.Stat(path); err == nil {
		mb = float64(info.Size()) / 1024 / 1024
	}
	s.log.Info("shard written", "file", path, "rows", len(s.rows), "size_mb", fmt.Sprintf("%.2f", mb))

	s.files = append(s.files, path)
	s.next++
	s.rows = nil
	s.size = 0
	return nil
}
