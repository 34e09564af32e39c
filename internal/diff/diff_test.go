package diff

import (
	"reflect"
	"testing"

	"github.com/galsec/galscan/internal/models"
)

func TestCompareIdenticalModelsIsEmpty(t *testing.T) {
	t.Parallel()

	m := &models.ThreatModel{
		Assets:    []models.Asset{{Path: []string{"api"}, ID: "api"}},
		Exposures: []models.Exposure{{Asset: "api", Threat: "SQLi", Severity: models.SeverityHigh}},
		Mitigations: []models.Mitigation{
			{Asset: "api", Threat: "SQLi", Control: "Validation"},
		},
	}
	if d := Compare(m, m); !d.Empty() {
		t.Errorf("self-diff not empty: %+v", d)
	}
}

func TestCompareAddedRemovedChanged(t *testing.T) {
	t.Parallel()

	previous := &models.ThreatModel{
		Assets: []models.Asset{
			{Path: []string{"api"}, ID: "api"},
			{Path: []string{"legacy", "queue"}},
		},
		Threats: []models.Threat{{Name: "SQLi", Severity: models.SeverityHigh}},
	}
	current := &models.ThreatModel{
		Assets: []models.Asset{
			{Path: []string{"api"}, ID: "api"},
			{Path: []string{"billing", "db"}},
		},
		Threats: []models.Threat{{Name: "SQLi", Severity: models.SeverityCritical}},
	}

	d := Compare(current, previous)
	if !reflect.DeepEqual(d.Assets.Added, []string{"billing.db"}) {
		t.Errorf("added = %v", d.Assets.Added)
	}
	if !reflect.DeepEqual(d.Assets.Removed, []string{"legacy.queue"}) {
		t.Errorf("removed = %v", d.Assets.Removed)
	}
	if !reflect.DeepEqual(d.Threats.Changed, []string{"sqli"}) {
		t.Errorf("changed = %v", d.Threats.Changed)
	}
}

func TestCompareFoldsCaseInKeys(t *testing.T) {
	t.Parallel()

	previous := &models.ThreatModel{
		Mitigations: []models.Mitigation{{Asset: "API.Auth", Threat: "SQLI", Control: "Validation"}},
	}
	current := &models.ThreatModel{
		Mitigations: []models.Mitigation{{Asset: "api.auth", Threat: "sqli", Control: "validation"}},
	}
	if d := Compare(current, previous); !d.Mitigations.Empty() {
		t.Errorf("case-only rename reported as change: %+v", d.Mitigations)
	}
}

func TestNewUnmitigatedExposures(t *testing.T) {
	t.Parallel()

	previous := &models.ThreatModel{
		Exposures: []models.Exposure{{Asset: "api", Threat: "old", Severity: models.SeverityLow}},
	}
	current := &models.ThreatModel{
		Exposures: []models.Exposure{
			// Carried over from previous, still open but not new.
			{Asset: "api", Threat: "old", Severity: models.SeverityLow},
			// New and open.
			{Asset: "api", Threat: "fresh", Severity: models.SeverityCritical},
			// New but mitigated.
			{Asset: "api", Threat: "handled", Severity: models.SeverityHigh},
		},
		Mitigations: []models.Mitigation{{Asset: "api", Threat: "handled", Control: "X"}},
	}

	d := Compare(current, previous)
	if len(d.NewUnmitigatedExposures) != 1 {
		t.Fatalf("new unmitigated = %+v", d.NewUnmitigatedExposures)
	}
	if d.NewUnmitigatedExposures[0].Threat != "fresh" {
		t.Errorf("threat = %q", d.NewUnmitigatedExposures[0].Threat)
	}
}

func TestCompareGovernanceCollections(t *testing.T) {
	t.Parallel()

	previous := &models.ThreatModel{
		DataHandling: []models.DataHandling{
			{Asset: "store.users", Classification: "pii"},
		},
		Ownerships: []models.Ownership{{Owner: "team-a", Asset: "api"}},
		Audits:     []models.Audit{{Asset: "api"}},
	}
	current := &models.ThreatModel{
		Ownerships: []models.Ownership{{Owner: "team-b", Asset: "api"}},
		Audits:     []models.Audit{{Asset: "api"}},
		Transfers:  []models.Transfer{{Threat: "CSRF", Source: "web", Target: "gateway"}},
	}

	d := Compare(current, previous)
	if !reflect.DeepEqual(d.DataHandling.Removed, []string{"pii::store.users"}) {
		t.Errorf("data handling removed = %v", d.DataHandling.Removed)
	}
	if !reflect.DeepEqual(d.Ownerships.Changed, []string{"api"}) {
		t.Errorf("ownerships changed = %v", d.Ownerships.Changed)
	}
	if !d.Audits.Empty() {
		t.Errorf("audits = %+v", d.Audits)
	}
	if !reflect.DeepEqual(d.Transfers.Added, []string{"csrf:web->gateway"}) {
		t.Errorf("transfers added = %v", d.Transfers.Added)
	}
}

func TestCompareFlowsByEndpoints(t *testing.T) {
	t.Parallel()

	previous := &models.ThreatModel{
		Flows: []models.Flow{{Source: "web", Target: "db", Mechanism: "TLS"}},
	}
	current := &models.ThreatModel{
		Flows: []models.Flow{
			{Source: "web", Target: "db", Mechanism: "mTLS"},
			{Source: "web", Target: "cache", Mechanism: "TLS"},
		},
	}

	d := Compare(current, previous)
	if !reflect.DeepEqual(d.Flows.Added, []string{"web->cache"}) {
		t.Errorf("added = %v", d.Flows.Added)
	}
	if !reflect.DeepEqual(d.Flows.Changed, []string{"web->db"}) {
		t.Errorf("changed = %v", d.Flows.Changed)
	}
}
