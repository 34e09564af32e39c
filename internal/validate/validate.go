// Package validate holds pure checks over a completed ThreatModel.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/galsec/galscan/internal/models"
)

// FindDanglingRefs returns a warning for every #id used by a relationship
// that no asset, threat, or control definition declares.
func FindDanglingRefs(m *models.ThreatModel) []models.ParseDiagnostic {
	defined := make(map[string]struct{})
	for _, a := range m.Assets {
		if a.ID != "" {
			defined[strings.ToLower(a.ID)] = struct{}{}
		}
	}
	for _, t := range m.Threats {
		if t.ID != "" {
			defined[strings.ToLower(t.ID)] = struct{}{}
		}
	}
	for _, c := range m.Controls {
		if c.ID != "" {
			defined[strings.ToLower(c.ID)] = struct{}{}
		}
	}

	var diags []models.ParseDiagnostic
	for _, ref := range CollectRefs(m) {
		id := strings.ToLower(strings.TrimPrefix(ref.Name, "#"))
		if _, ok := defined[id]; ok {
			continue
		}
		diags = append(diags, models.ParseDiagnostic{
			Level:   models.DiagWarning,
			File:    ref.Location.File,
			Line:    ref.Location.Line,
			Message: fmt.Sprintf("reference %s has no matching definition", ref.Name),
		})
	}
	return diags
}

// Ref is one #id usage inside a relationship annotation.
type Ref struct {
	Name     string
	Location models.SourceLocation
}

// CollectRefs gathers every #-prefixed token used in a relationship
// (definitions do not count; neither do free-text descriptions).
func CollectRefs(m *models.ThreatModel) []Ref {
	var refs []Ref
	add := func(loc models.SourceLocation, names ...string) {
		for _, n := range names {
			if strings.HasPrefix(n, "#") {
				refs = append(refs, Ref{Name: n, Location: loc})
			}
		}
	}

	for _, v := range m.Mitigations {
		add(v.Location, v.Asset, v.Threat, v.Control)
	}
	for _, v := range m.Exposures {
		add(v.Location, v.Asset, v.Threat)
	}
	for _, v := range m.Acceptances {
		add(v.Location, v.Asset, v.Threat)
	}
	for _, v := range m.Transfers {
		add(v.Location, v.Threat, v.Source, v.Target)
	}
	for _, v := range m.Flows {
		add(v.Location, v.Source, v.Target)
	}
	for _, v := range m.Boundaries {
		add(v.Location, v.AssetA, v.AssetB)
	}
	for _, v := range m.Validations {
		add(v.Location, v.Control, v.Asset)
	}
	for _, v := range m.Audits {
		add(v.Location, v.Asset)
	}
	for _, v := range m.Ownerships {
		add(v.Location, v.Owner, v.Asset)
	}
	for _, v := range m.DataHandling {
		add(v.Location, v.Asset)
	}
	for _, v := range m.Assumptions {
		add(v.Location, v.Asset)
	}
	return refs
}

// FindUnmitigatedExposures returns exposures with neither a mitigation nor
// an acceptance for their asset::threat key, most severe first and then by
// file path.
func FindUnmitigatedExposures(m *models.ThreatModel) []models.Exposure {
	mitigated := m.MitigationKeys()
	accepted := m.AcceptanceKeys()

	var open []models.Exposure
	for _, exp := range m.Exposures {
		key := models.MatchKey(exp.Asset, exp.Threat)
		if _, ok := mitigated[key]; ok {
			continue
		}
		if _, ok := accepted[key]; ok {
			continue
		}
		open = append(open, exp)
	}

	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Severity.Weight() != open[j].Severity.Weight() {
			return open[i].Severity.Weight() > open[j].Severity.Weight()
		}
		return open[i].Location.File < open[j].Location.File
	})
	return open
}

// FindAcceptedExposures returns exposures covered only by an acceptance.
// An acceptance with no code-level control is a risk worth re-confirming.
func FindAcceptedExposures(m *models.ThreatModel) []models.Exposure {
	mitigated := m.MitigationKeys()
	accepted := m.AcceptanceKeys()

	var out []models.Exposure
	for _, exp := range m.Exposures {
		key := models.MatchKey(exp.Asset, exp.Threat)
		if _, ok := mitigated[key]; ok {
			continue
		}
		if _, ok := accepted[key]; !ok {
			continue
		}
		out = append(out, exp)
	}
	return out
}

// FindAcceptedWithoutAudit flags acceptances whose asset has no @audit
// entry. Automated agents must never author @accepts; an acceptance with
// no audit trail is how that policy being bypassed shows up.
func FindAcceptedWithoutAudit(m *models.ThreatModel) []models.ParseDiagnostic {
	audited := make(map[string]struct{}, len(m.Audits))
	for _, a := range m.Audits {
		audited[models.NormalizeName(a.Asset)] = struct{}{}
	}

	var diags []models.ParseDiagnostic
	for _, acc := range m.Acceptances {
		if _, ok := audited[models.NormalizeName(acc.Asset)]; ok {
			continue
		}
		diags = append(diags, models.ParseDiagnostic{
			Level:   models.DiagWarning,
			File:    acc.Location.File,
			Line:    acc.Location.Line,
			Message: fmt.Sprintf("accepted risk on %s has no @audit entry", acc.Asset),
		})
	}
	return diags
}
