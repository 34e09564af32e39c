package reporter

import "github.com/galsec/galscan/internal/models"

// Reporter is the interface for output formatters
type Reporter interface {
	// ReportScan renders one per-repository scan report
	ReportScan(rep *models.RepoReport) ([]byte, error)

	// ReportMerged renders a cross-repository merged report
	ReportMerged(rep *models.MergedReport) ([]byte, error)
}

// Get returns a reporter for the specified format
func Get(format string) Reporter {
	switch format {
	case "terminal":
		return &TerminalReporter{}
	default:
		return &JSONReporter{}
	}
}
