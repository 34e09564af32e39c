package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galsec/galscan/internal/builder"
	"github.com/galsec/galscan/internal/logging"
	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/reporter"
	"github.com/galsec/galscan/internal/validate"
)

var (
	flagProject     string
	flagInclude     []string
	flagExclude     []string
	flagNoGitignore bool
	flagNoFail      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan a source tree and build its threat model report",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagProject, "project", "", "Project name (default: go.mod module or directory name)")
	scanCmd.Flags().StringSliceVar(&flagInclude, "include", nil, "Include patterns (gitignore syntax)")
	scanCmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "Exclude patterns (gitignore syntax)")
	scanCmd.Flags().BoolVar(&flagNoGitignore, "no-gitignore", false, "Ignore the project's .gitignore")
	scanCmd.Flags().BoolVar(&flagNoFail, "no-fail", false, "Don't exit with error code on unmitigated exposures")
	rootCmd.AddCommand(scanCmd)
}

// buildConfig assembles the scan config from flags and .galscan.toml.
func buildConfig(args []string) (*models.Config, error) {
	cfg := models.DefaultConfig()
	if len(args) > 0 {
		cfg.Root = args[0]
	}
	cfg.Project = flagProject
	cfg.Include = flagInclude
	cfg.Exclude = flagExclude
	cfg.UseGitignore = !flagNoGitignore
	cfg.OutputFormat = flagFormat
	cfg.OutputFile = flagOutput

	if err := models.LoadFileConfig(cfg); err != nil {
		logging.Logger.Warnf("ignoring unreadable %s: %v", models.ConfigFileName, err)
	}
	return cfg, nil
}

// buildReport runs a full scan and wraps the model in a report envelope.
func buildReport(cfg *models.Config) (*models.RepoReport, error) {
	m, diags, err := builder.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return &models.RepoReport{
		Repo:          m.Project,
		Commit:        builder.GitCommit(cfg.Root),
		GeneratedAt:   m.GeneratedAt,
		SchemaVersion: models.SchemaVersion,
		Model:         m,
		Diagnostics:   diags,
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(args)
	if err != nil {
		return err
	}

	rep, err := buildReport(cfg)
	if err != nil {
		return err
	}

	output, err := reporter.Get(flagFormat).ReportScan(rep)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if err := writeOutput(output); err != nil {
		return err
	}

	if !flagNoFail && len(validate.FindUnmitigatedExposures(rep.Model)) > 0 {
		os.Exit(1)
	}
	return nil
}
