package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dgallion1/cmsprep/internal/config"
	"github.com/dgallion1/cmsprep/internal/logging"
	"github.com/dgallion1/cmsprep/internal/markup"
	"github.com/dgallion1/cmsprep/internal/pages"
	"github.com/dgallion1/cmsprep/internal/progress"
)

// app carries what every subcommand needs once the root has initialized.
type app struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer

	envFile    string
	format     string
	noProgress bool

	cfg      config.Config
	log      *slog.Logger
	stripper *markup.Stripper
}

// run executes the command line and logs a failing command's error.
func run(ctx context.Context, args []string, fs afero.Fs, stdout, stderr io.Writer) error {
	a := &app{fs: fs, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		log := a.log
		if log == nil {
			log = logging.New(stderr, "info", "text")
		}
		log.Error("command failed", "error", err)
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cmsprep",
		Short:         "Fetch, clean, chunk and render CMS pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&a.format, "markup", string(markup.FormatHTML), "markup format of page bodies (html, markdown, text)")
	root.PersistentFlags().BoolVar(&a.noProgress, "no-progress", false, "disable progress bars")

	root.AddCommand(
		a.fetchCmd(),
		a.pageCmd(),
		a.cleanCmd(),
		a.analyzeCmd(),
		a.chunkCmd(),
		a.renderCmd(),
	)
	return root
}

func (a *app) setup() error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}
	a.cfg = config.Load()
	if err := a.cfg.ValidateLogging(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.log = logging.New(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)

	f, err := markup.ParseFormat(a.format)
	if err != nil {
		return err
	}
	ext, err := markup.ForFormat(f)
	if err != nil {
		return err
	}
	a.stripper = markup.NewStripper(ext, a.log)
	return nil
}

// bar starts a progress bar, or returns a no-op when bars are disabled.
// The returned func completes the bar.
func (a *app) bar(name string, total int) (progress.Tracker, func()) {
	if a.noProgress {
		return progress.Nop{}, func() {}
	}
	b := progress.New(a.stderr, name, int64(total))
	return b, b.Done
}

// readInput loads a page CSV and counts its data rows for the progress bar.
func (a *app) readInput(path string) ([]byte, int, error) {
	b, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, 0, err
	}
	r, err := pages.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Info("read CSV file", "file", path, "rows", len(rows), "body_column", r.TextColumn())
	return b, len(rows), nil
}
