package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/galsec/galscan/internal/logging"
	"github.com/galsec/galscan/internal/manifest"
	"github.com/galsec/galscan/internal/merge"
	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/reporter"
)

var (
	flagWorkspace   string
	flagManifest    string
	flagStaleHours  int
	flagDiffAgainst string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <reports...>",
	Short: "Combine per-repository reports into one workspace model",
	Long: `merge loads every given report independently; a missing or corrupt
report is recorded as an unloaded repository and never aborts the batch.
Report order matters: when the same tag id is defined by several
repositories and none of their names matches the tag prefix, the
first-seen definition wins.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&flagWorkspace, "workspace", "", "Workspace name (default: from manifest)")
	mergeCmd.Flags().StringVar(&flagManifest, "manifest", "", "Workspace manifest (galscan.yaml or .json)")
	mergeCmd.Flags().IntVar(&flagStaleHours, "stale-hours", 0, "Flag reports older than this many hours (default 168)")
	mergeCmd.Flags().StringVar(&flagDiffAgainst, "diff-against", "", "Previous merged report to diff the result against")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	opts := merge.Options{
		Workspace:  flagWorkspace,
		StaleAfter: time.Duration(flagStaleHours) * time.Hour,
	}

	if flagManifest != "" {
		mf, err := manifest.Load(flagManifest)
		if err != nil {
			return err
		}
		opts.Expected = mf.RepoNames()
		if opts.Workspace == "" {
			opts.Workspace = mf.Workspace
		}
	}
	if opts.Workspace == "" {
		opts.Workspace = "workspace"
	}

	results := merge.LoadFiles(args)
	for _, res := range results {
		if res.Err != nil {
			logging.Logger.Warnf("repo %s not loaded: %v", res.Name, res.Err)
		}
	}

	merged := merge.Merge(results, opts)

	if flagDiffAgainst != "" {
		return writeMergeDiff(merged, flagDiffAgainst)
	}

	output, err := reporter.Get(flagFormat).ReportMerged(merged)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return writeOutput(output)
}

func writeMergeDiff(current *models.MergedReport, previousPath string) error {
	prev, err := loadMerged(previousPath)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(merge.Diff(prev, current), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate merge diff: %w", err)
	}
	return writeOutput(append(output, '\n'))
}

func loadMerged(path string) (*models.MergedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading merged report: %w", err)
	}
	var rep models.MergedReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding merged report %s: %w", path, err)
	}
	return &rep, nil
}
