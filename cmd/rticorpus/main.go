package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rticorpus/internal/config"
	"github.com/dgallion1/rticorpus/internal/schema"
	"github.com/dgallion1/rticorpus/internal/structurer"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "rticorpus",
		Short: "Build the RTI case law corpus",
		Long: `rticorpus scrapes RTI case law pages and guides into a training corpus.

It produces:
  - listing CSVs of case pages
  - structured case documents and instruction/response records
  - cleaned guide text and FAQ tables
  - word-window chunks and their embeddings`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (overrides RTI_DATA_DIR)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(structureCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(guideCmd())
	rootCmd.AddCommand(faqCmd())
	rootCmd.AddCommand(chunkCmd())
	rootCmd.AddCommand(embedCmd())
	rootCmd.AddCommand(runCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries what every step needs.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	vocab   structurer.Vocabulary
	anchors schema.Anchors
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
		cfg.DBPath = filepath.Join(dir, filepath.Base(cfg.DBPath))
	}
	if err := cfg.ValidateChunking(); err != nil {
		return nil, err
	}

	var level slog.Level
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	vocab, anchors, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, vocab: vocab, anchors: anchors}, nil
}

// path joins parts under the data directory.
func (a *app) path(parts ...string) string {
	return filepath.Join(append([]string{a.cfg.DataDir}, parts...)...)
}

// Default locations under the data directory.
func (a *app) linksCSV() string     { return a.path("links", "case_law_data.csv") }
func (a *app) contentCSV() string   { return a.path("extracted", "case_law_data_with_content.csv") }
func (a *app) casesJSONL() string   { return a.path("extracted", "rti_cases.jsonl") }
func (a *app) recordsJSONL() string { return a.path("extracted", "rti_instructions.jsonl") }
func (a *app) guidePDF() string     { return a.path("pdfs", "GuideonRTI.pdf") }
func (a *app) guideOut() string     { return a.path("cleaned", "cleaned_guide.txt") }
func (a *app) faqPDF() string       { return a.path("pdfs", "RTI FAQs INCOIS.pdf") }
func (a *app) faqCSV() string       { return a.path("extracted", "rti_faqs.csv") }
func (a *app) cleanedDir() string   { return a.path("cleaned") }
func (a *app) chunksJSONL() string  { return a.path("chunks", "chunks.jsonl") }

// writeFile creates path and its parent directories and hands the file to fn.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return fn(f)
}

// flagOr returns the string flag name, or def when it is unset.
func flagOr(cmd *cobra.Command, name, def string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return def
}
