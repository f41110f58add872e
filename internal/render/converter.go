package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Converter writes a document as PDF to w.
type Converter interface {
	Convert(ctx context.Context, doc Document, w io.Writer) error
}

// WKHTMLToPDFOptions are passed to every wkhtmltopdf invocation.
var WKHTMLToPDFOptions = []string{
	"--encoding", "UTF-8",
	"--page-size", "A4",
	"--no-outline",
	"--enable-local-file-access",
	"--log-level", "info",
}

// WKHTMLToPDF renders the HTML template through the wkhtmltopdf binary,
// feeding it on stdin and reading the PDF from stdout.
type WKHTMLToPDF struct {
	Path string // binary path; "wkhtmltopdf" when empty
}

func (c WKHTMLToPDF) Convert(ctx context.Context, doc Document, w io.Writer) error {
	page, err := HTML(doc)
	if err != nil {
		return err
	}
	bin := c.Path
	if bin == "" {
		bin = "wkhtmltopdf"
	}

	args := append(append([]string(nil), WKHTMLToPDFOptions...), "-", "-")
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(page)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("wkhtmltopdf: %w", err)
		}
		return fmt.Errorf("wkhtmltopdf: %w: %s", err, lastLine(msg))
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Layout for GoPDF, in millimetres. The body line height is 1.6 times the
// 12pt font.
const (
	margin       = 20.0
	titleSize    = 20.0
	titleHeight  = 10.0
	bodySize     = 12.0
	bodyHeight   = bodySize * 1.6 * 25.4 / 72
	titleSpacing = 6.0
)

// GoPDF lays the document out with gofpdf: Arial, a centred green heading
// and one justified-left paragraph. It needs no external binary. Text is
// mapped to cp1252, so characters outside it are dropped.
type GoPDF struct{}

func (GoPDF) Convert(ctx context.Context, doc Document, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", titleSize)
	pdf.SetTextColor(76, 175, 80)
	pdf.MultiCell(0, titleHeight, tr(doc.Title), "", "C", false)
	pdf.Ln(titleSpacing)

	pdf.SetFont("Arial", "", bodySize)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, bodyHeight, tr(doc.Text), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("gofpdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("gofpdf: %w", err)
	}
	return nil
}
