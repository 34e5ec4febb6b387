// Package cmd wires the CLI: scan, patch, verify, run, report, version.
// Exit codes: 0 clean, 1 usage or internal error, 2 patch or write failure,
// 3 verification failure. The worst per-file outcome wins.
package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/config"
	"github.com/itayg2341/jansson/internal/logger"
	"github.com/itayg2341/jansson/internal/plan"
)

var (
	cfgFile   string
	flagRoot  string
	flagPlan  string
	flagOut   string
	flagLevel string
	flagNoTUI bool

	// outcomeExit is set by commands whose result maps to a non-zero exit
	// code without being a command error.
	outcomeExit int

	rootCmd = &cobra.Command{
		Use:           "redress [command]",
		Short:         "redress scans, patches, and verifies C sources for memory-safety hazards",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `redress locates known-dangerous constructs in a C source tree, applies
plan-driven textual patches, and independently verifies the result. Files are
processed one at a time; a patch that cannot find its target leaves the file
byte-identical.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default redress.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "source tree to operate on")
	rootCmd.PersistentFlags().StringVar(&flagPlan, "plan", "", "remediation plan file (default: built-in jansson plan)")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "directory for report output")
	rootCmd.PersistentFlags().StringVar(&flagLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagNoTUI, "no-tui", false, "disable the progress dashboard")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	outcomeExit = 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "redress: %v\n", err)
		return 1
	}
	return outcomeExit
}

// resolveRoot lets a positional path argument override the configured root.
func resolveRoot(cfg *config.Config, args []string) {
	if len(args) == 1 && args[0] != "" {
		cfg.Root = args[0]
	}
}

// setup resolves configuration with flag overrides and loads the plan.
func setup(cmd *cobra.Command) (*config.Config, hclog.Logger, plan.Plan, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, plan.Plan{}, err
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = flagRoot
	}
	if cmd.Flags().Changed("plan") {
		cfg.Plan = flagPlan
	}
	if cmd.Flags().Changed("out") {
		cfg.Out = flagOut
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLevel
	}
	if flagNoTUI {
		cfg.NoTUI = true
	}

	log := logger.New(cfg.LogLevel)

	var p plan.Plan
	if cfg.Plan != "" {
		p, err = plan.Load(cfg.Plan)
		if err != nil {
			return nil, nil, plan.Plan{}, err
		}
		log.Debug("plan loaded", "path", cfg.Plan, "patches", len(p.Patches), "probes", len(p.Probes))
	} else {
		p = plan.Default()
		log.Debug("using built-in plan", "patches", len(p.Patches), "probes", len(p.Probes))
	}
	return cfg, log, p, nil
}
