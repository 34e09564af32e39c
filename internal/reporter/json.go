package reporter

import (
	"encoding/json"

	"github.com/galsec/galscan/internal/models"
)

// JSONReporter emits the canonical report shape. This output is the
// compatibility surface read back by the merge and diff commands.
type JSONReporter struct{}

// ReportScan generates JSON output for a per-repository report
func (r *JSONReporter) ReportScan(rep *models.RepoReport) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// ReportMerged generates JSON output for a merged report
func (r *JSONReporter) ReportMerged(rep *models.MergedReport) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}
