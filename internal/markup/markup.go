package markup

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/cmsprep/internal/logging"
)

// Format names the markup language of a CMS body field.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Extractor converts markup into readable plain text.
type Extractor interface {
	Extract(raw string) (string, error)
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "text", "txt", "plain":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported markup format: %s", s)
	}
}

// ForFormat returns the extractor for a format.
func ForFormat(f Format) (Extractor, error) {
	switch f {
	case FormatHTML, "":
		return &HTML{}, nil
	case FormatMarkdown:
		return &Markdown{}, nil
	case FormatText:
		return &Text{}, nil
	default:
		return nil, fmt.Errorf("unsupported markup format: %s", f)
	}
}

// Stripper applies an Extractor and falls back to the raw input whenever
// extraction fails, so malformed markup never aborts a run.
type Stripper struct {
	ext Extractor
	log *slog.Logger
}

// NewStripper returns a Stripper. A nil logger discards fallback warnings.
func NewStripper(ext Extractor, log *slog.Logger) *Stripper {
	if ext == nil {
		ext = &HTML{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Stripper{ext: ext, log: log}
}

// Strip returns the extracted text, or raw unchanged on failure.
func (s *Stripper) Strip(raw string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("markup extraction panicked, keeping raw value", "error", r)
			text = raw
		}
	}()

	out, err := s.ext.Extract(raw)
	if err != nil {
		s.log.Warn("markup extraction failed, keeping raw value", "error", err, "bytes", len(raw))
		return raw
	}
	return out
}

var defaultStripper = NewStripper(&HTML{}, nil)

// Strip extracts text from HTML with the raw-input fallback.
func Strip(raw string) string {
	return defaultStripper.Strip(raw)
}
