package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/rticorpus/internal/pipeline"
)

func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Crawl listing pages into a CSV of case links",
		Long: `Crawl the case law listing pages RTI_LISTING_START_PAGE..RTI_LISTING_END_PAGE
and write one row per case entry.

Example:
  rticorpus links
  rticorpus links --out cases.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.links(cmd.Context(), flagOr(cmd, "out", a.linksCSV()))
		},
	}
	cmd.Flags().String("out", "", "output CSV (default <data-dir>/links/case_law_data.csv)")
	return cmd
}

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and structure every case page in the links CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			summary, err := a.scrape(cmd.Context(),
				flagOr(cmd, "in", a.linksCSV()),
				flagOr(cmd, "csv-out", a.contentCSV()),
				flagOr(cmd, "out", a.casesJSONL()),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scrape: %s\n", summary)
			return nil
		},
	}
	cmd.Flags().String("in", "", "links CSV (default <data-dir>/links/case_law_data.csv)")
	cmd.Flags().String("out", "", "structured JSONL (default <data-dir>/extracted/rti_cases.jsonl)")
	cmd.Flags().String("csv-out", "", "content CSV (default <data-dir>/extracted/case_law_data_with_content.csv)")
	return cmd
}

func structureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structure <page.html>...",
		Short: "Structure saved case pages",
		Long: `Structure saved HTML case pages into the markdown-like case format.

Without --out-dir the documents are printed to stdout.

Example:
  rticorpus structure page1.html page2.html --out-dir structured/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			outDir, _ := cmd.Flags().GetString("out-dir")
			_, err = a.structureFiles(args, outDir, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().String("out-dir", "", "write one .md file per page into this directory")
	return cmd
}

func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Turn structured cases into instruction/response records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			summary, err := a.clean(flagOr(cmd, "in", a.casesJSONL()), flagOr(cmd, "out", a.recordsJSONL()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clean: %s\n", summary)
			return nil
		},
	}
	cmd.Flags().String("in", "", "structured JSONL (default <data-dir>/extracted/rti_cases.jsonl)")
	cmd.Flags().String("out", "", "records JSONL (default <data-dir>/extracted/rti_instructions.jsonl)")
	return cmd
}

func guideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Extract and clean the text of an RTI guide (PDF, DOCX or TXT)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.guideText(cmd.Context(), flagOr(cmd, "in", a.guidePDF()), flagOr(cmd, "out", a.guideOut()))
		},
	}
	cmd.Flags().String("in", "", "guide document (default <data-dir>/pdfs/GuideonRTI.pdf)")
	cmd.Flags().String("out", "", "cleaned text (default <data-dir>/cleaned/cleaned_guide.txt)")
	return cmd
}

func faqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Extract numbered FAQs from a guide into a CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.faq(cmd.Context(), flagOr(cmd, "in", a.faqPDF()), flagOr(cmd, "out", a.faqCSV()))
		},
	}
	cmd.Flags().String("in", "", "FAQ document (default <data-dir>/pdfs/RTI FAQs INCOIS.pdf)")
	cmd.Flags().String("out", "", "FAQ CSV (default <data-dir>/extracted/rti_faqs.csv)")
	return cmd
}

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split every .txt, .md, .html and .csv document in a directory into word windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("size") {
				a.cfg.ChunkSize, _ = cmd.Flags().GetInt("size")
			}
			if cmd.Flags().Changed("overlap") {
				a.cfg.ChunkOverlap, _ = cmd.Flags().GetInt("overlap")
			}
			n, err := a.chunk(cmd.Context(), flagOr(cmd, "in", a.cleanedDir()), flagOr(cmd, "out", a.chunksJSONL()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chunk: %d chunks\n", n)
			return nil
		},
	}
	cmd.Flags().String("in", "", "input directory (default <data-dir>/cleaned)")
	cmd.Flags().String("out", "", "chunks JSONL (default <data-dir>/chunks/chunks.jsonl)")
	cmd.Flags().Int("size", 0, "words per chunk (overrides RTI_CHUNK_SIZE)")
	cmd.Flags().Int("overlap", 0, "words shared by neighbouring chunks (overrides RTI_CHUNK_OVERLAP)")
	return cmd
}

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed chunks with Gemini and store the vectors in SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			g, err := a.gemini(cmd.Context())
			if err != nil {
				return err
			}
			defer g.Close()
			n, err := a.embedChunks(cmd.Context(), g, flagOr(cmd, "in", a.chunksJSONL()), concurrency)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "embed: %d records stored in %s\n", n, a.cfg.DBPath)
			return nil
		},
	}
	cmd.Flags().String("in", "", "chunks JSONL (default <data-dir>/chunks/chunks.jsonl)")
	cmd.Flags().Int("concurrency", 1, "embedding calls in flight")
	return cmd
}

// step is one stage of the full run.
type step struct {
	name string
	run  func(ctx context.Context) error
}

func (a *app) steps() []step {
	return []step{
		{"links", func(ctx context.Context) error { return a.links(ctx, a.linksCSV()) }},
		{"scrape", func(ctx context.Context) error {
			_, err := a.scrape(ctx, a.linksCSV(), a.contentCSV(), a.casesJSONL())
			return err
		}},
		{"clean", func(ctx context.Context) error {
			_, err := a.clean(a.casesJSONL(), a.recordsJSONL())
			return err
		}},
		{"guide", func(ctx context.Context) error { return a.guideText(ctx, a.guidePDF(), a.guideOut()) }},
		{"faq", func(ctx context.Context) error { return a.faq(ctx, a.faqPDF(), a.faqCSV()) }},
		{"chunk", func(ctx context.Context) error {
			_, err := a.chunk(ctx, a.cleanedDir(), a.chunksJSONL())
			return err
		}},
		{"embed", func(ctx context.Context) error {
			g, err := a.gemini(ctx)
			if err != nil {
				return err
			}
			defer g.Close()
			_, err = a.embedChunks(ctx, g, a.chunksJSONL(), 1)
			return err
		}},
	}
}

// runSteps runs every step not in skip. A failing step is logged and the run
// moves on; only cancellation stops it early.
func (a *app) runSteps(ctx context.Context, steps []step, skip []string) (*pipeline.Summary, error) {
	summary := &pipeline.Summary{}
	start := time.Now()
	for i, s := range steps {
		if slices.Contains(skip, s.name) {
			a.log.Info("step skipped", "step", s.name)
			summary.Add(pipeline.StatusSkipped)
			continue
		}
		a.log.Info("starting step", "step", s.name, "index", i+1, "of", len(steps))
		t0 := time.Now()
		if err := s.run(ctx); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			a.log.Error("step failed", "step", s.name, "error", err)
			summary.Add(pipeline.StatusFailed)
			continue
		}
		a.log.Info("step completed", "step", s.name, "duration", time.Since(t0).Round(time.Millisecond))
		summary.Add(pipeline.StatusCompleted)
	}
	summary.Log(a.log, "run")
	a.log.Info("run finished", "duration", time.Since(start).Round(time.Second))
	return summary, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every step in order: links, scrape, clean, guide, faq, chunk, embed",
		Long: `Run the whole corpus build. A failing step is logged and the run continues
with the next one; the exit status is non-zero if any step failed.

Example:
  rticorpus run
  rticorpus run --skip links,embed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			skip, _ := cmd.Flags().GetStringSlice("skip")
			a.log = a.log.With("run_id", uuid.NewString())
			summary, err := a.runSteps(cmd.Context(), a.steps(), skip)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run: %s\n", summary)
			if _, _, _, failed := summary.Counts(); failed > 0 {
				return fmt.Errorf("%d step(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("skip", nil, "steps to skip")
	return cmd
}
