package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/validate"
)

var flagStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate [root]",
	Short: "Check a tree for dangling references and governance gaps",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero on any warning")
	validateCmd.Flags().StringVar(&flagProject, "project", "", "Project name override")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(args)
	if err != nil {
		return err
	}
	rep, err := buildReport(cfg)
	if err != nil {
		return err
	}
	m := rep.Model

	var sb strings.Builder
	var warnings []models.ParseDiagnostic
	warnings = append(warnings, validate.FindDanglingRefs(m)...)
	warnings = append(warnings, validate.FindAcceptedWithoutAudit(m)...)

	for _, d := range rep.Diagnostics {
		sb.WriteString(d.String() + "\n")
	}
	for _, d := range warnings {
		sb.WriteString(d.String() + "\n")
	}

	open := validate.FindUnmitigatedExposures(m)
	for _, exp := range open {
		sb.WriteString(fmt.Sprintf("%s:%d: open exposure: %s to %s\n",
			exp.Location.File, exp.Location.Line, exp.Asset, exp.Threat))
	}
	for _, exp := range validate.FindAcceptedExposures(m) {
		sb.WriteString(fmt.Sprintf("%s:%d: accepted without control: %s to %s\n",
			exp.Location.File, exp.Location.Line, exp.Asset, exp.Threat))
	}

	if sb.Len() == 0 {
		sb.WriteString("model is clean\n")
	}
	if err := writeOutput([]byte(sb.String())); err != nil {
		return err
	}

	if len(open) > 0 || (flagStrict && (len(warnings) > 0 || len(rep.Diagnostics) > 0)) {
		os.Exit(1)
	}
	return nil
}
