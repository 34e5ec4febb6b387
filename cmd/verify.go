package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/engine"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Run the plan's verification probes against the tree",
	Long: `Verify re-reads every probed file from disk and checks the plan's expected
and forbidden patterns. It never consults patch results: a hand-edited tree
that satisfies the probes passes, and a patched tree that does not fails.`,
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
			Verify: true,
			Logger: log,
		})
		if err != nil {
			return err
		}

		passed := 0
		total := 0
		for _, fr := range report.Files {
			for _, v := range fr.Verification {
				total++
				if v.Pass {
					passed++
					fmt.Printf("PASS %s (%s)\n", v.ProbeID, v.File)
					continue
				}
				fmt.Printf("FAIL %s (%s)\n", v.ProbeID, v.File)
				if v.Error != "" {
					fmt.Printf("     error: %s\n", v.Error)
				}
				if len(v.MissingMarkers) > 0 {
					fmt.Printf("     missing: %s\n", strings.Join(v.MissingMarkers, ", "))
				}
				for _, fm := range v.ForbiddenMatches {
					fmt.Printf("     forbidden %q line %d: %s\n", fm.Pattern, fm.Line, fm.Text)
				}
			}
		}
		fmt.Printf("%d/%d probe(s) passed\n", passed, total)
		outcomeExit = report.Outcome.ExitCode()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
