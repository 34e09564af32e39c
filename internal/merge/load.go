package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/galsec/galscan/internal/models"
)

// LoadResult is the loaded-or-failed outcome for one report file. A bad
// report never aborts the batch; it is carried here and surfaced as an
// unloaded RepoStatus.
type LoadResult struct {
	Name   string
	Report *models.RepoReport
	Err    error
}

// LoadFile reads and decodes one per-repository report. The result name
// falls back to the file name when the report carries no repo field.
func LoadFile(path string) LoadResult {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{Name: name, Err: fmt.Errorf("reading report: %w", err)}
	}

	var report models.RepoReport
	if err := json.Unmarshal(data, &report); err != nil {
		return LoadResult{Name: name, Err: fmt.Errorf("decoding report: %w", err)}
	}
	if report.Model == nil {
		return LoadResult{Name: name, Err: fmt.Errorf("report carries no model")}
	}
	if report.Repo != "" {
		name = report.Repo
	}
	return LoadResult{Name: name, Report: &report}
}

// LoadFiles loads every path independently, preserving input order.
func LoadFiles(paths []string) []LoadResult {
	results := make([]LoadResult, 0, len(paths))
	for _, p := range paths {
		results = append(results, LoadFile(p))
	}
	return results
}
