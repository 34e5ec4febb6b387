package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/buildinfo"
	"github.com/itayg2341/jansson/internal/engine"
	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/patchtui"
	"github.com/itayg2341/jansson/internal/progress"
	"github.com/itayg2341/jansson/internal/report"
	"github.com/itayg2341/jansson/internal/safefile"
	"github.com/itayg2341/jansson/internal/source"
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Scan, patch, and verify in one pass, then write reports",
	Long: `Run executes the full pipeline per file in lexical order: scan, apply the
plan's patches, write the file back atomically, then verify from disk.
Reports land in the output directory as run.json, run.sarif, and report.md.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, p, err := setup(cmd)
		if err != nil {
			return err
		}
		resolveRoot(cfg, args)

		opts := engine.Options{
			Root:   cfg.Root,
			Plan:   p,
			Scan:   true,
			Patch:  true,
			Verify: true,
			Logger: log,
		}

		var runReport model.RunReport
		if useTUI(cfg.NoTUI) {
			runReport, err = patchtui.Run(context.Background(), opts)
		} else {
			opts.Sink = progress.NewPlainSink(os.Stderr)
			runReport, err = engine.Run(context.Background(), opts)
		}
		if err != nil {
			return err
		}

		if err := writeReports(cfg.Root, cfg.Out, cfg.APIPrefix, runReport, log); err != nil {
			return err
		}

		fmt.Println(report.SummaryLine(runReport))
		outcomeExit = runReport.Outcome.ExitCode()
		return nil
	},
}

func useTUI(disabled bool) bool {
	if disabled {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stderr.Fd())
}

func writeReports(root, out, apiPrefix string, runReport model.RunReport, log hclog.Logger) error {
	if _, err := safefile.EnsureDir(out, 0o755); err != nil {
		return err
	}

	if err := report.WriteJSON(filepath.Join(out, "run.json"), runReport); err != nil {
		return err
	}

	// SARIF goes through the same atomic rename as the other artifacts so a
	// crash mid-run never leaves a truncated report behind.
	var sarif bytes.Buffer
	if err := report.WriteSARIF(&sarif, runReport); err != nil {
		return err
	}
	sarifPath := filepath.Join(out, "run.sarif")
	if err := safefile.Replace(sarifPath, sarif.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", sarifPath, err)
	}

	// The stats and build sections are best-effort context around the run.
	stats, err := source.CollectStats(root, apiPrefix)
	if err != nil {
		log.Warn("stats collection failed", "error", err)
	}
	build, err := buildinfo.Inspect(root)
	if err != nil {
		log.Warn("build inspection failed", "error", err)
	}
	story := report.Story{
		Project: filepath.Base(filepath.Clean(root)),
		Stats:   stats,
		Build:   build,
		Run:     &runReport,
	}
	return report.WriteMarkdown(filepath.Join(out, "report.md"), story)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
