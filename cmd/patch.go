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

var patchJSON bool

var patchCmd = &cobra.Command{
	Use:   "patch [path]",
	Short: "Apply the plan's patches to the source tree",
	Long: `Patch applies every patch in the plan. A patch whose anchor is missing,
ambiguous, or already applied is skipped with a reason and the target file is
left byte-identical. Run verify afterwards to confirm the end state.`,
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
			Patch:  true,
			Logger: log,
		})
		if err != nil {
			return err
		}

		var results []model.PatchResult
		for _, fr := range report.Files {
			results = append(results, fr.PatchResults...)
		}
		if patchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
			outcomeExit = report.Outcome.ExitCode()
			return nil
		}

		for _, fr := range report.Files {
			for _, pr := range fr.PatchResults {
				if pr.Applied {
					fmt.Printf("%s: %s applied (lines %d-%d)\n",
						pr.File, pr.PatchID, pr.Span.StartLine, pr.Span.EndLine)
				} else {
					fmt.Printf("%s: %s not applied: %s\n", pr.File, pr.PatchID, pr.Reason)
				}
			}
		}
		fmt.Printf("%d applied, %d failed\n", report.AppliedCount, report.FailedPatches)
		outcomeExit = report.Outcome.ExitCode()
		return nil
	},
}

func init() {
	patchCmd.Flags().BoolVar(&patchJSON, "json", false, "emit patch results as JSON")
	rootCmd.AddCommand(patchCmd)
}
