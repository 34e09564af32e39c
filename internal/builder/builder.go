// Package builder walks an included file set, applies the line grammar to
// every line, and folds the results into a single ThreatModel.
package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/galsec/galscan/internal/grammar"
	"github.com/galsec/galscan/internal/models"
)

// Build scans cfg.Root and returns the assembled model together with every
// diagnostic collected along the way. Diagnostics are data, not failures:
// the returned error is non-nil only when the project root itself cannot
// be read. The returned model is a snapshot; callers wanting fresh data
// call Build again.
func Build(cfg *models.Config) (*models.ThreatModel, []models.ParseDiagnostic, error) {
	if _, err := os.Stat(cfg.Root); err != nil {
		return nil, nil, fmt.Errorf("cannot read project root %s: %w", cfg.Root, err)
	}

	files, err := discover(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering files under %s: %w", cfg.Root, err)
	}

	m := &models.ThreatModel{
		Project:       projectName(cfg.Root, cfg.Project),
		GeneratedAt:   time.Now().UTC(),
		SchemaVersion: models.SchemaVersion,
	}
	var diags []models.ParseDiagnostic

	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(cfg.Root, filepath.FromSlash(rel)))
		if err != nil {
			diags = append(diags, models.ParseDiagnostic{
				Level:   models.DiagWarning,
				File:    rel,
				Message: fmt.Sprintf("unreadable file skipped: %v", err),
			})
			continue
		}
		lines := splitLines(string(data))

		style, _ := grammar.StyleForExtension(filepath.Ext(rel))
		annos, ds := grammar.ScanLines(rel, lines, style)
		diags = append(diags, ds...)

		for _, a := range annos {
			fold(m, a)
		}

		cov := coverFile(rel, lines, annos)
		diags = append(diags, cov.Diags...)
		m.Coverage.TotalSymbols += cov.Total
		m.Coverage.AnnotatedSymbols += cov.Annotated
		m.Coverage.UnannotatedCritical = append(m.Coverage.UnannotatedCritical, cov.Misses...)

		m.Files.Scanned++
		m.Files.ScannedFiles = append(m.Files.ScannedFiles, rel)
		if len(annos) > 0 {
			m.Files.Annotated++
		} else {
			m.Files.Unannotated++
			m.Files.UnannotatedFiles = append(m.Files.UnannotatedFiles, rel)
		}
	}

	m.Coverage.CoveragePercent = models.CoveragePercent(m.Coverage.AnnotatedSymbols, m.Coverage.TotalSymbols)

	sortModel(m)
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].File != diags[j].File {
			return diags[i].File < diags[j].File
		}
		return diags[i].Line < diags[j].Line
	})

	return m, diags, nil
}

// fold appends one parsed annotation to the model. Collections keep
// insertion order and are not deduplicated.
func fold(m *models.ThreatModel, a grammar.Annotation) {
	rel := models.Rel{Description: a.Description, Location: a.Location}

	switch a.Verb {
	case grammar.VerbAsset:
		m.Assets = append(m.Assets, models.Asset{
			Path:        strings.Split(a.Slot(grammar.SlotName), "."),
			ID:          a.ID,
			Description: a.Description,
			Location:    a.Location,
		})
	case grammar.VerbThreat:
		m.Threats = append(m.Threats, models.Threat{
			Name:        a.Slot(grammar.SlotName),
			Severity:    a.Severity,
			ID:          a.ID,
			Description: a.Description,
			Location:    a.Location,
		})
	case grammar.VerbControl:
		m.Controls = append(m.Controls, models.Control{
			Name:        a.Slot(grammar.SlotName),
			ID:          a.ID,
			Description: a.Description,
			Location:    a.Location,
		})
	case grammar.VerbMitigates:
		m.Mitigations = append(m.Mitigations, models.Mitigation{
			Rel:     rel,
			Asset:   a.Slot(grammar.SlotAsset),
			Threat:  a.Slot(grammar.SlotThreat),
			Control: a.Slot(grammar.SlotControl),
		})
	case grammar.VerbExposes:
		m.Exposures = append(m.Exposures, models.Exposure{
			Rel:          rel,
			Asset:        a.Slot(grammar.SlotAsset),
			Threat:       a.Slot(grammar.SlotThreat),
			Severity:     a.Severity,
			ExternalRefs: a.ExternalRefs,
		})
	case grammar.VerbAccepts:
		m.Acceptances = append(m.Acceptances, models.Acceptance{
			Rel:    rel,
			Asset:  a.Slot(grammar.SlotAsset),
			Threat: a.Slot(grammar.SlotThreat),
		})
	case grammar.VerbTransfers:
		m.Transfers = append(m.Transfers, models.Transfer{
			Rel:    rel,
			Threat: a.Slot(grammar.SlotThreat),
			Source: a.Slot(grammar.SlotSource),
			Target: a.Slot(grammar.SlotTarget),
		})
	case grammar.VerbFlows:
		m.Flows = append(m.Flows, models.Flow{
			Rel:       rel,
			Source:    a.Slot(grammar.SlotSource),
			Target:    a.Slot(grammar.SlotTarget),
			Mechanism: a.Slot(grammar.SlotMechanism),
		})
	case grammar.VerbBoundary:
		m.Boundaries = append(m.Boundaries, models.Boundary{
			Rel:    rel,
			AssetA: a.Slot(grammar.SlotAsset),
			AssetB: a.Slot(grammar.SlotAssetB),
			ID:     a.ID,
		})
	case grammar.VerbValidates:
		m.Validations = append(m.Validations, models.Validation{
			Rel:     rel,
			Control: a.Slot(grammar.SlotControl),
			Asset:   a.Slot(grammar.SlotAsset),
		})
	case grammar.VerbAudit:
		m.Audits = append(m.Audits, models.Audit{
			Rel:   rel,
			Asset: a.Slot(grammar.SlotAsset),
		})
	case grammar.VerbOwns:
		m.Ownerships = append(m.Ownerships, models.Ownership{
			Rel:   rel,
			Owner: a.Slot(grammar.SlotOwner),
			Asset: a.Slot(grammar.SlotAsset),
		})
	case grammar.VerbHandles:
		m.DataHandling = append(m.DataHandling, models.DataHandling{
			Rel:            rel,
			Asset:          a.Slot(grammar.SlotAsset),
			Classification: a.Slot(grammar.SlotClassification),
		})
	case grammar.VerbAssumes:
		m.Assumptions = append(m.Assumptions, models.Assumption{
			Rel:   rel,
			Asset: a.Slot(grammar.SlotAsset),
		})
	case grammar.VerbShield, grammar.VerbShieldBegin, grammar.VerbShieldEnd:
		m.Shields = append(m.Shields, models.Shield{
			Rel:    rel,
			Reason: a.Slot(grammar.SlotReason),
		})
	case grammar.VerbComment:
		c := models.Comment{Rel: rel}
		if text := a.Slot(grammar.SlotText); text != "" {
			if c.Description != "" {
				c.Description += " " + text
			} else {
				c.Description = text
			}
		}
		m.Comments = append(m.Comments, c)
	}
}

// sortModel stably orders every collection by (file, line) so the result
// is independent of processing order.
func sortModel(m *models.ThreatModel) {
	sortByLoc(m.Assets, func(v models.Asset) models.SourceLocation { return v.Location })
	sortByLoc(m.Threats, func(v models.Threat) models.SourceLocation { return v.Location })
	sortByLoc(m.Controls, func(v models.Control) models.SourceLocation { return v.Location })
	sortByLoc(m.Mitigations, func(v models.Mitigation) models.SourceLocation { return v.Location })
	sortByLoc(m.Exposures, func(v models.Exposure) models.SourceLocation { return v.Location })
	sortByLoc(m.Acceptances, func(v models.Acceptance) models.SourceLocation { return v.Location })
	sortByLoc(m.Transfers, func(v models.Transfer) models.SourceLocation { return v.Location })
	sortByLoc(m.Flows, func(v models.Flow) models.SourceLocation { return v.Location })
	sortByLoc(m.Boundaries, func(v models.Boundary) models.SourceLocation { return v.Location })
	sortByLoc(m.Validations, func(v models.Validation) models.SourceLocation { return v.Location })
	sortByLoc(m.Audits, func(v models.Audit) models.SourceLocation { return v.Location })
	sortByLoc(m.Ownerships, func(v models.Ownership) models.SourceLocation { return v.Location })
	sortByLoc(m.DataHandling, func(v models.DataHandling) models.SourceLocation { return v.Location })
	sortByLoc(m.Assumptions, func(v models.Assumption) models.SourceLocation { return v.Location })
	sortByLoc(m.Shields, func(v models.Shield) models.SourceLocation { return v.Location })
	sortByLoc(m.Comments, func(v models.Comment) models.SourceLocation { return v.Location })
}

func sortByLoc[T any](s []T, loc func(T) models.SourceLocation) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := loc(s[i]), loc(s[j])
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

// splitLines splits file content into physical lines, tolerating CRLF.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
