package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/engine"
	"github.com/itayg2341/jansson/internal/model"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan the source tree for suspicious patterns",
	Long: `Scan walks the tree and reports unsafe string calls, allocations in files
with no matching release, and size_t arithmetic. Files are never modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, p, err := setup(cmd)
		if err != nil {
			return err
		}
		resolveRoot(cfg, args)

		report, err := engine.Run(context.Background(), engine.Options{
			Root:   cfg.Root,
			Plan:   p,
			Scan:   true,
			Logger: log,
		})
		if err != nil {
			return err
		}

		var findings []model.Finding
		for _, fr := range report.Files {
			findings = append(findings, fr.Findings...)
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(findings)
		}
		for _, f := range findings {
			fmt.Printf("%s:%d: [%s] %s\n", f.File, f.Line, f.Category, f.MatchedText)
		}
		fmt.Printf("%d finding(s) in %d file(s)\n", report.FindingCount, len(report.Files))
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "emit findings as JSON")
	rootCmd.AddCommand(scanCmd)
}
