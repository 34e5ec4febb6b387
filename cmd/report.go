package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/buildinfo"
	"github.com/itayg2341/jansson/internal/model"
	"github.com/itayg2341/jansson/internal/report"
	"github.com/itayg2341/jansson/internal/safefile"
	"github.com/itayg2341/jansson/internal/source"
)

var reportStdout bool

var reportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Generate the project analysis report",
	Long: `Report collects tree statistics and build-system information and renders
the Markdown analysis report. When a previous run's run.json exists in the
output directory its findings and verification results are included.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, _, err := setup(cmd)
		if err != nil {
			return err
		}
		resolveRoot(cfg, args)

		stats, err := source.CollectStats(cfg.Root, cfg.APIPrefix)
		if err != nil {
			return err
		}
		build, err := buildinfo.Inspect(cfg.Root)
		if err != nil {
			return err
		}

		story := report.Story{
			Project: filepath.Base(filepath.Clean(cfg.Root)),
			Stats:   stats,
			Build:   build,
		}

		runPath := filepath.Join(cfg.Out, "run.json")
		if b, err := os.ReadFile(runPath); err == nil {
			var prev model.RunReport
			if err := json.Unmarshal(b, &prev); err != nil {
				log.Warn("ignoring unreadable run report", "path", runPath, "error", err)
			} else {
				story.Run = &prev
			}
		}

		if reportStdout {
			fmt.Print(report.RenderMarkdown(story))
			return nil
		}
		if _, err := safefile.EnsureDir(cfg.Out, 0o755); err != nil {
			return err
		}
		path := filepath.Join(cfg.Out, "report.md")
		if err := report.WriteMarkdown(path, story); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", path)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "print the report instead of writing it")
	rootCmd.AddCommand(reportCmd)
}
