package merge

import (
	"reflect"
	"testing"

	"github.com/galsec/galscan/internal/models"
)

func merged(totals models.MergeTotals, statuses ...models.RepoStatus) *models.MergedReport {
	return &models.MergedReport{Totals: totals, RepoStatuses: statuses}
}

func TestDiffRiskIncreased(t *testing.T) {
	t.Parallel()

	previous := merged(models.MergeTotals{UnmitigatedExposures: 1, Exposures: 2})
	current := merged(models.MergeTotals{UnmitigatedExposures: 3, Exposures: 5})

	d := Diff(previous, current)
	if d.RiskDelta != RiskIncreased {
		t.Errorf("risk = %q", d.RiskDelta)
	}
	if d.NewUnmitigated != 2 {
		t.Errorf("new unmitigated = %d, want 2", d.NewUnmitigated)
	}
	if d.ExposuresDelta != 3 {
		t.Errorf("exposures delta = %d, want 3", d.ExposuresDelta)
	}
}

func TestDiffRiskDecreasedAndUnchanged(t *testing.T) {
	t.Parallel()

	d := Diff(merged(models.MergeTotals{UnmitigatedExposures: 3}),
		merged(models.MergeTotals{UnmitigatedExposures: 1}))
	if d.RiskDelta != RiskDecreased || d.NewUnmitigated != 0 {
		t.Errorf("decreased: %+v", d)
	}

	d = Diff(merged(models.MergeTotals{UnmitigatedExposures: 2}),
		merged(models.MergeTotals{UnmitigatedExposures: 2}))
	if d.RiskDelta != RiskUnchanged {
		t.Errorf("unchanged: %+v", d)
	}
}

func TestDiffRepoSets(t *testing.T) {
	t.Parallel()

	previous := merged(models.MergeTotals{},
		models.RepoStatus{Name: "svc-a", Commit: "aaa", Annotations: 5},
		models.RepoStatus{Name: "svc-gone", Commit: "ggg"},
	)
	current := merged(models.MergeTotals{},
		models.RepoStatus{Name: "svc-a", Commit: "bbb", Annotations: 5},
		models.RepoStatus{Name: "svc-new", Commit: "nnn"},
	)

	d := Diff(previous, current)
	if !reflect.DeepEqual(d.ReposAdded, []string{"svc-new"}) {
		t.Errorf("added = %v", d.ReposAdded)
	}
	if !reflect.DeepEqual(d.ReposRemoved, []string{"svc-gone"}) {
		t.Errorf("removed = %v", d.ReposRemoved)
	}
	if !reflect.DeepEqual(d.ReposChanged, []string{"svc-a"}) {
		t.Errorf("changed = %v", d.ReposChanged)
	}
}
