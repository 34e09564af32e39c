package merge

import "github.com/galsec/galscan/internal/models"

// Risk trend values.
const (
	RiskIncreased = "increased"
	RiskDecreased = "decreased"
	RiskUnchanged = "unchanged"
)

// Delta is the numeric/set difference between two merged reports. It is
// computed purely from totals and repo statuses; no source is re-parsed.
type Delta struct {
	RiskDelta      string `json:"risk_delta"`
	NewUnmitigated int    `json:"new_unmitigated"`

	AssetsDelta      int `json:"assets_delta"`
	ThreatsDelta     int `json:"threats_delta"`
	MitigationsDelta int `json:"mitigations_delta"`
	ExposuresDelta   int `json:"exposures_delta"`
	FlowsDelta       int `json:"flows_delta"`

	ReposAdded   []string `json:"repos_added,omitempty"`
	ReposRemoved []string `json:"repos_removed,omitempty"`
	ReposChanged []string `json:"repos_changed,omitempty"`
}

// Diff compares two merged reports, previous to current.
func Diff(previous, current *models.MergedReport) *Delta {
	d := &Delta{
		AssetsDelta:      current.Totals.Assets - previous.Totals.Assets,
		ThreatsDelta:     current.Totals.Threats - previous.Totals.Threats,
		MitigationsDelta: current.Totals.Mitigations - previous.Totals.Mitigations,
		ExposuresDelta:   current.Totals.Exposures - previous.Totals.Exposures,
		FlowsDelta:       current.Totals.Flows - previous.Totals.Flows,
	}

	unmitDelta := current.Totals.UnmitigatedExposures - previous.Totals.UnmitigatedExposures
	switch {
	case unmitDelta > 0:
		d.RiskDelta = RiskIncreased
		d.NewUnmitigated = unmitDelta
	case unmitDelta < 0:
		d.RiskDelta = RiskDecreased
	default:
		d.RiskDelta = RiskUnchanged
	}

	prev := statusByName(previous)
	curr := statusByName(current)

	for _, st := range current.RepoStatuses {
		old, ok := prev[st.Name]
		if !ok {
			d.ReposAdded = append(d.ReposAdded, st.Name)
			continue
		}
		if old.Annotations != st.Annotations || old.Commit != st.Commit {
			d.ReposChanged = append(d.ReposChanged, st.Name)
		}
	}
	for _, st := range previous.RepoStatuses {
		if _, ok := curr[st.Name]; !ok {
			d.ReposRemoved = append(d.ReposRemoved, st.Name)
		}
	}

	return d
}

func statusByName(r *models.MergedReport) map[string]models.RepoStatus {
	out := make(map[string]models.RepoStatus, len(r.RepoStatuses))
	for _, st := range r.RepoStatuses {
		out[st.Name] = st
	}
	return out
}
