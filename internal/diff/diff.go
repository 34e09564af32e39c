// Package diff compares two ThreatModel snapshots structurally. It knows
// nothing about version control: the "previous" model is whatever the
// caller rebuilt from a historical copy of the tree.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/validate"
)

// EntityDiff lists identity keys added, removed, or changed between two
// snapshots of one collection.
type EntityDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Empty reports whether nothing differs.
func (d EntityDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// ModelDiff is the full structural delta between two models.
type ModelDiff struct {
	Assets       EntityDiff `json:"assets"`
	Threats      EntityDiff `json:"threats"`
	Controls     EntityDiff `json:"controls"`
	Mitigations  EntityDiff `json:"mitigations"`
	Exposures    EntityDiff `json:"exposures"`
	Acceptances  EntityDiff `json:"acceptances"`
	Transfers    EntityDiff `json:"transfers"`
	Flows        EntityDiff `json:"flows"`
	Boundaries   EntityDiff `json:"boundaries"`
	Validations  EntityDiff `json:"validations"`
	Audits       EntityDiff `json:"audits"`
	Ownerships   EntityDiff `json:"ownerships"`
	DataHandling EntityDiff `json:"data_handling"`
	Assumptions  EntityDiff `json:"assumptions"`

	// NewUnmitigatedExposures are exposures that are both new in
	// "current" and currently open: the signal a CI gate fails on.
	NewUnmitigatedExposures []models.Exposure `json:"new_unmitigated_exposures,omitempty"`
}

// Empty reports whether the two models are structurally identical.
func (d *ModelDiff) Empty() bool {
	return d.Assets.Empty() && d.Threats.Empty() && d.Controls.Empty() &&
		d.Mitigations.Empty() && d.Exposures.Empty() && d.Acceptances.Empty() &&
		d.Transfers.Empty() && d.Flows.Empty() && d.Boundaries.Empty() &&
		d.Validations.Empty() && d.Audits.Empty() && d.Ownerships.Empty() &&
		d.DataHandling.Empty() && d.Assumptions.Empty() &&
		len(d.NewUnmitigatedExposures) == 0
}

// Compare computes the structural delta from previous to current.
func Compare(current, previous *models.ThreatModel) *ModelDiff {
	d := &ModelDiff{
		Assets:       diffKeyed(assetKeys(current), assetKeys(previous)),
		Threats:      diffKeyed(threatKeys(current), threatKeys(previous)),
		Controls:     diffKeyed(controlKeys(current), controlKeys(previous)),
		Mitigations:  diffKeyed(mitigationKeys(current), mitigationKeys(previous)),
		Exposures:    diffKeyed(exposureKeys(current), exposureKeys(previous)),
		Acceptances:  diffKeyed(acceptanceKeys(current), acceptanceKeys(previous)),
		Transfers:    diffKeyed(transferKeys(current), transferKeys(previous)),
		Flows:        diffKeyed(flowKeys(current), flowKeys(previous)),
		Boundaries:   diffKeyed(boundaryKeys(current), boundaryKeys(previous)),
		Validations:  diffKeyed(validationKeys(current), validationKeys(previous)),
		Audits:       diffKeyed(auditKeys(current), auditKeys(previous)),
		Ownerships:   diffKeyed(ownershipKeys(current), ownershipKeys(previous)),
		DataHandling: diffKeyed(dataHandlingKeys(current), dataHandlingKeys(previous)),
		Assumptions:  diffKeyed(assumptionKeys(current), assumptionKeys(previous)),
	}

	prevExposures := exposureKeys(previous)
	for _, exp := range validate.FindUnmitigatedExposures(current) {
		if _, existed := prevExposures[exposureKey(exp)]; existed {
			continue
		}
		d.NewUnmitigatedExposures = append(d.NewUnmitigatedExposures, exp)
	}

	return d
}

// diffKeyed compares two identity->fingerprint maps. A key present in both
// with differing fingerprints is "changed".
func diffKeyed(current, previous map[string]string) EntityDiff {
	var d EntityDiff
	for key, fp := range current {
		prevFP, ok := previous[key]
		switch {
		case !ok:
			d.Added = append(d.Added, key)
		case prevFP != fp:
			d.Changed = append(d.Changed, key)
		}
	}
	for key := range previous {
		if _, ok := current[key]; !ok {
			d.Removed = append(d.Removed, key)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

func assetKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Assets))
	for _, a := range m.Assets {
		out[models.NormalizeName(a.Name())] = a.ID + "\x00" + a.Description
	}
	return out
}

func threatKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Threats))
	for _, t := range m.Threats {
		out[models.NormalizeName(t.Name)] = t.ID + "\x00" + string(t.Severity) + "\x00" + t.Description
	}
	return out
}

func controlKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Controls))
	for _, c := range m.Controls {
		out[models.NormalizeName(c.Name)] = c.ID + "\x00" + c.Description
	}
	return out
}

func mitigationKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Mitigations))
	for _, v := range m.Mitigations {
		key := models.MatchKey(v.Asset, v.Threat)
		out[key] = models.NormalizeName(v.Control)
	}
	return out
}

func exposureKey(v models.Exposure) string {
	return models.MatchKey(v.Asset, v.Threat)
}

func exposureKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Exposures))
	for _, v := range m.Exposures {
		out[exposureKey(v)] = string(v.Severity) + "\x00" + strings.Join(v.ExternalRefs, ",")
	}
	return out
}

func acceptanceKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Acceptances))
	for _, v := range m.Acceptances {
		out[models.MatchKey(v.Asset, v.Threat)] = ""
	}
	return out
}

func flowKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Flows))
	for _, v := range m.Flows {
		key := fmt.Sprintf("%s->%s", models.NormalizeName(v.Source), models.NormalizeName(v.Target))
		out[key] = models.NormalizeName(v.Mechanism)
	}
	return out
}

func boundaryKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Boundaries))
	for _, v := range m.Boundaries {
		key := fmt.Sprintf("%s|%s", models.NormalizeName(v.AssetA), models.NormalizeName(v.AssetB))
		out[key] = v.ID
	}
	return out
}

func transferKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Transfers))
	for _, v := range m.Transfers {
		key := fmt.Sprintf("%s:%s->%s",
			models.NormalizeName(v.Threat), models.NormalizeName(v.Source), models.NormalizeName(v.Target))
		out[key] = ""
	}
	return out
}

func validationKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Validations))
	for _, v := range m.Validations {
		out[models.MatchKey(v.Control, v.Asset)] = ""
	}
	return out
}

func auditKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Audits))
	for _, v := range m.Audits {
		out[models.NormalizeName(v.Asset)] = ""
	}
	return out
}

func ownershipKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Ownerships))
	for _, v := range m.Ownerships {
		// A handover shows up as a change on the asset, not add+remove.
		out[models.NormalizeName(v.Asset)] = models.NormalizeName(v.Owner)
	}
	return out
}

func dataHandlingKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.DataHandling))
	for _, v := range m.DataHandling {
		out[models.MatchKey(v.Classification, v.Asset)] = ""
	}
	return out
}

func assumptionKeys(m *models.ThreatModel) map[string]string {
	out := make(map[string]string, len(m.Assumptions))
	for _, v := range m.Assumptions {
		out[models.NormalizeName(v.Asset)] = v.Description
	}
	return out
}
