package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cmsprep/internal/chunker"
	"github.com/dgallion1/cmsprep/internal/cleaner"
	"github.com/dgallion1/cmsprep/internal/cms"
	"github.com/dgallion1/cmsprep/internal/fetcher"
	"github.com/dgallion1/cmsprep/internal/progress"
	"github.com/dgallion1/cmsprep/internal/render"
)

func (a *app) fetchCmd() *cobra.Command {
	var (
		output    string
		types     []string
		links     bool
		linksPath string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch pages from the CMS into a page CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			client := cms.NewClient(a.cfg.BaseURL, a.cfg.APIKey, a.log)
			defer client.Close()

			done := func() {}
			opts := fetcher.Options{
				Types:   types,
				CSVPath: output,
				NewTracker: func(total int) progress.Tracker {
					var t progress.Tracker
					t, done = a.bar("Processing pages", total)
					return t
				},
			}
			if links {
				opts.LinksPath = linksPath
			}

			f := fetcher.New(client, a.cfg.WebHost, a.stripper, a.log)
			_, err := f.Run(cmd.Context(), a.fs, opts)
			done()
			if errors.Is(err, fetcher.ErrNoPages) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "buttercms_pages.csv", "page CSV to write")
	cmd.Flags().StringSliceVarP(&types, "type", "t", fetcher.DefaultPageTypes, "page types to fetch, in order")
	cmd.Flags().BoolVar(&links, "links", false, "also write a links JSON file")
	cmd.Flags().StringVar(&linksPath, "links-output", "buttercms_links.json", "links JSON file to write")
	return cmd
}

func (a *app) pageCmd() *cobra.Command {
	var pageType string
	cmd := &cobra.Command{
		Use:   "page <slug>",
		Short: "Print one page's data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateCMS(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			client := cms.NewClient(a.cfg.BaseURL, a.cfg.APIKey, a.log)
			defer client.Close()

			raw, err := client.FetchPage(cmd.Context(), pageType, args[0])
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "  "); err != nil {
				return fmt.Errorf("format page: %w", err)
			}
			out.WriteByte('\n')
			_, err = a.stdout.Write(out.Bytes())
			return err
		},
	}
	cmd.Flags().StringVarP(&pageType, "type", "t", "*", "page type, * for any")
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip markup from a page CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, rows, err := a.readInput(input)
			if err != nil {
				return err
			}
			out, err := a.fs.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer out.Close()

			track, done := a.bar("Cleaning data", rows)
			_, err = cleaner.Clean(cmd.Context(), bytes.NewReader(in), out, cleaner.Options{
				Stripper: a.stripper,
				Log:      a.log,
				Progress: track,
			})
			done()
			if err != nil {
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			a.log.Info("cleaned CSV saved", "file", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "buttercms_pages.csv", "page CSV to clean")
	cmd.Flags().StringVarP(&output, "output", "o", "cleaned_pages.csv", "cleaned CSV to write")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report sentence-length statistics and suggest window parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, _, err := a.analyze(cmd, input)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "cleaned_pages.csv", "plain-text page CSV")
	return cmd
}

// analyze prints sentence statistics for input and returns them with the
// file contents and row count.
func (a *app) analyze(cmd *cobra.Command, input string) (chunker.Stats, []byte, int, error) {
	in, rows, err := a.readInput(input)
	if err != nil {
		return chunker.Stats{}, nil, 0, err
	}
	track, done := a.bar("Analyzing sentence lengths", rows)
	stats, err := chunker.Analyze(cmd.Context(), bytes.NewReader(in), track)
	done()
	if err != nil {
		return stats, nil, 0, err
	}

	s := stats.Suggest()
	fmt.Fprintf(a.stdout, "Sentence Statistics:\n")
	fmt.Fprintf(a.stdout, "Total sentences: %d\n", stats.Sentences)
	fmt.Fprintf(a.stdout, "Median length: %.2f characters\n", stats.Median)
	fmt.Fprintf(a.stdout, "Mean length: %.2f characters\n", stats.Mean)
	fmt.Fprintf(a.stdout, "Max length: %d characters\n", stats.Max)
	fmt.Fprintf(a.stdout, "\nSuggested window size: %d\n", s.Size)
	fmt.Fprintf(a.stdout, "Suggested overlap: %d\n", s.Overlap)
	return stats, in, rows, nil
}

func (a *app) chunkCmd() *cobra.Command {
	var (
		input, output string
		size, overlap int
		interactive   bool
	)
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split page text into overlapping sentence windows",
		Long: "Split page text into overlapping sentence windows written to chunk_<n>.csv shards.\n" +
			"Without --size the suggestion from the sentence statistics is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, in, rows, err := a.analyze(cmd, input)
			if err != nil {
				return err
			}

			params := stats.Suggest()
			switch {
			case interactive:
				params, err = promptParams(params)
				if err != nil {
					return err
				}
			case cmd.Flags().Changed("size"):
				params = chunker.Params{Size: size, Overlap: overlap}
			case cmd.Flags().Changed("overlap"):
				params.Overlap = overlap
			}
			if err := params.Validate(); err != nil {
				return err
			}
			a.log.Info("chunking", "size", params.Size, "overlap", params.Overlap)

			track, done := a.bar("Processing chunks", rows)
			_, err = chunker.Chunk(cmd.Context(), bytes.NewReader(in), a.fs, output, params, chunker.Options{
				Log:      a.log,
				Progress: track,
			})
			done()
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "cleaned_pages.csv", "plain-text page CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "chunked_output", "directory for chunk shards")
	cmd.Flags().IntVar(&size, "size", 0, "window size in characters")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "overlap budget in characters")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "confirm or enter the parameters interactively")
	cmd.MarkFlagsMutuallyExclusive("interactive", "size")
	cmd.MarkFlagsMutuallyExclusive("interactive", "overlap")
	return cmd
}

const (
	engineWKHTMLToPDF = "wkhtmltopdf"
	engineGoPDF       = "gopdf"
)

func (a *app) renderCmd() *cobra.Command {
	var input, output, engine string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render each page as a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var conv render.Converter
			switch engine {
			case engineWKHTMLToPDF:
				conv = render.WKHTMLToPDF{Path: a.cfg.WKHTMLToPDFPath}
			case engineGoPDF:
				conv = render.GoPDF{}
			default:
				return fmt.Errorf("unknown engine %q (want %s or %s)", engine, engineWKHTMLToPDF, engineGoPDF)
			}

			in, rows, err := a.readInput(input)
			if err != nil {
				return err
			}
			track, done := a.bar("Generating PDFs", rows)
			_, err = render.Render(cmd.Context(), bytes.NewReader(in), a.fs, output, conv, render.Options{
				Stripper: a.stripper,
				Log:      a.log,
				Progress: track,
			})
			done()
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "buttercms_pages.csv", "page CSV to render")
	cmd.Flags().StringVarP(&output, "output", "o", "output_pdfs", "directory for PDFs")
	cmd.Flags().StringVar(&engine, "engine", engineWKHTMLToPDF, "PDF engine (wkhtmltopdf, gopdf)")
	return cmd
}
