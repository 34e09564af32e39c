package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galsec/galscan/internal/logging"
)

var (
	flagDebug  bool
	flagFormat string
	flagOutput string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "galscan",
	Short: "Extract, validate, and merge threat models from GAL annotations",
	Long: `galscan walks a source tree for GAL annotation comments (@asset,
@exposes, @mitigates, ...) and assembles them into a structured threat
model.

Subcommands:
  scan      build a threat model report for one repository
  validate  check a tree for dangling references and open exposures
  diff      compare the current tree against a previous report
  merge     combine per-repository reports into one workspace model

Examples:
  # Scan the current directory and write a report
  galscan scan -o report.json

  # Fail CI when a change introduces new unmitigated exposures
  galscan diff previous.json

  # Merge a workspace
  galscan merge --manifest galscan.yaml reports/*.json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitLogger(flagDebug)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "json", "Output format: json, terminal")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
}

// writeOutput sends rendered output to the configured file or stdout.
func writeOutput(data []byte) error {
	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", flagOutput)
		return nil
	}
	fmt.Print(string(data))
	return nil
}
