package reporter

import (
	"fmt"
	"strings"

	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/validate"
)

// TerminalReporter outputs a human-readable summary
type TerminalReporter struct{}

// ReportScan generates terminal output for a per-repository report
func (r *TerminalReporter) ReportScan(rep *models.RepoReport) ([]byte, error) {
	m := rep.Model
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\nThreat model: %s\n", m.Project))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(fmt.Sprintf("Files scanned:   %d (%d annotated)\n", m.Files.Scanned, m.Files.Annotated))
	sb.WriteString(fmt.Sprintf("Annotations:     %d\n", m.AnnotationCount()))
	sb.WriteString(fmt.Sprintf("Assets/Threats:  %d / %d\n", len(m.Assets), len(m.Threats)))
	sb.WriteString(fmt.Sprintf("Coverage:        %d%% (%d of %d symbols)\n",
		m.Coverage.CoveragePercent, m.Coverage.AnnotatedSymbols, m.Coverage.TotalSymbols))

	open := validate.FindUnmitigatedExposures(m)
	if len(open) == 0 {
		sb.WriteString("\nNo unmitigated exposures.\n")
	} else {
		sb.WriteString(fmt.Sprintf("\n%d unmitigated exposure(s):\n\n", len(open)))
		for _, exp := range open {
			sev := string(exp.Severity)
			if sev == "" {
				sev = "unrated"
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s exposed to %s\n", sev, exp.Asset, exp.Threat))
			sb.WriteString(fmt.Sprintf("         %s:%d\n", exp.Location.File, exp.Location.Line))
			if len(exp.ExternalRefs) > 0 {
				sb.WriteString(fmt.Sprintf("         refs: %s\n", strings.Join(exp.ExternalRefs, ", ")))
			}
		}
	}

	if len(rep.Diagnostics) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d diagnostic(s):\n", len(rep.Diagnostics)))
		for _, d := range rep.Diagnostics {
			sb.WriteString(fmt.Sprintf("  %s\n", d.String()))
		}
	}

	return []byte(sb.String()), nil
}

// ReportMerged generates terminal output for a merged report
func (r *TerminalReporter) ReportMerged(rep *models.MergedReport) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\nWorkspace: %s\n", rep.Workspace))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, st := range rep.RepoStatuses {
		if st.Loaded {
			sb.WriteString(fmt.Sprintf("  ok    %-24s %d annotations\n", st.Name, st.Annotations))
		} else {
			sb.WriteString(fmt.Sprintf("  FAIL  %-24s %s\n", st.Name, st.Error))
		}
	}

	t := rep.Totals
	sb.WriteString(fmt.Sprintf("\nTotals: %d assets, %d threats, %d exposures (%d unmitigated), %d flows\n",
		t.Assets, t.Threats, t.Exposures, t.UnmitigatedExposures, t.Flows))

	if len(rep.UnresolvedRefs) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d unresolved reference(s):\n", len(rep.UnresolvedRefs)))
		for _, u := range rep.UnresolvedRefs {
			line := fmt.Sprintf("  #%s (%d use(s))", u.Tag, len(u.Locations))
			if u.InferredRepo != "" {
				line += fmt.Sprintf(" (likely %s)", u.InferredRepo)
			}
			sb.WriteString(line + "\n")
		}
	}

	if len(rep.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d warning(s):\n", len(rep.Warnings)))
		for _, w := range rep.Warnings {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", w.Kind, w.Message))
		}
	}

	return []byte(sb.String()), nil
}
