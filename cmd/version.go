package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itayg2341/jansson/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the redress version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("redress %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
