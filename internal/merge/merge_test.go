package merge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/galsec/galscan/internal/models"
)

var mergeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func report(t *testing.T, repo string, m *models.ThreatModel) LoadResult {
	t.Helper()
	return LoadResult{
		Name: repo,
		Report: &models.RepoReport{
			Repo:          repo,
			GeneratedAt:   mergeNow.Add(-time.Hour),
			SchemaVersion: models.SchemaVersion,
			Model:         m,
		},
	}
}

func warningsOfKind(r *models.MergedReport, kind string) []models.MergeWarning {
	var out []models.MergeWarning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func TestMergeDuplicateTagKeepsNameMatch(t *testing.T) {
	t.Parallel()

	// Two repos both define #shared.cache; neither name matches the
	// "shared" prefix, so the first-seen definition wins.
	a := report(t, "svc-a", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"shared", "cache"}, ID: "shared.cache",
			Location: models.SourceLocation{File: "cache.go", Line: 3}}},
	})
	b := report(t, "svc-b", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"shared", "cache"}, ID: "shared.cache",
			Location: models.SourceLocation{File: "lru.go", Line: 8}}},
	})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})

	if len(out.TagRegistry) != 1 {
		t.Fatalf("registry = %+v", out.TagRegistry)
	}
	entry := out.TagRegistry[0]
	if entry.Repo != "svc-a" || entry.File != "svc-a/cache.go" {
		t.Errorf("entry = %+v", entry)
	}

	dups := warningsOfKind(out, models.WarnDuplicateTag)
	if len(dups) != 1 {
		t.Fatalf("duplicate warnings = %+v", out.Warnings)
	}
	for _, repo := range []string{"svc-a", "svc-b"} {
		if !strings.Contains(dups[0].Message, repo) {
			t.Errorf("warning %q does not name %s", dups[0].Message, repo)
		}
	}

	// Only the owner's definition survives in the combined model.
	if len(out.Model.Assets) != 1 || out.Model.Assets[0].Location.File != "svc-a/cache.go" {
		t.Errorf("assets = %+v", out.Model.Assets)
	}
}

func TestMergeDuplicateTagPrefersPrefixOwner(t *testing.T) {
	t.Parallel()

	// svc-b's name matches the tag prefix, so it owns #svc-b.db even
	// though svc-a's report comes first.
	a := report(t, "svc-a", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"svc-b", "db"}, ID: "svc-b.db"}},
	})
	b := report(t, "svc-b", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"svc-b", "db"}, ID: "svc-b.db"}},
	})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	if out.TagRegistry[0].Repo != "svc-b" {
		t.Errorf("owner = %q, want svc-b", out.TagRegistry[0].Repo)
	}

	// Same inputs reversed resolve the same owner.
	rev := Merge([]LoadResult{b, a}, Options{Workspace: "ws", Now: mergeNow})
	if rev.TagRegistry[0].Repo != "svc-b" {
		t.Errorf("reversed owner = %q, want svc-b", rev.TagRegistry[0].Repo)
	}
}

func TestMergeUnresolvedRefInfersRepo(t *testing.T) {
	t.Parallel()

	a := report(t, "svc-a", &models.ThreatModel{
		Mitigations: []models.Mitigation{{
			Rel:    models.Rel{Location: models.SourceLocation{File: "m.go", Line: 4}},
			Asset:  "#svc-b.db",
			Threat: "SQLi",
		}},
	})
	b := report(t, "svc-b", &models.ThreatModel{})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})

	if len(out.UnresolvedRefs) != 1 {
		t.Fatalf("unresolved = %+v", out.UnresolvedRefs)
	}
	u := out.UnresolvedRefs[0]
	if u.Tag != "svc-b.db" || u.InferredRepo != "svc-b" {
		t.Errorf("ref = %+v", u)
	}
	if len(u.Locations) != 1 || u.Locations[0].File != "svc-a/m.go" {
		t.Errorf("locations = %+v", u.Locations)
	}
	if len(warningsOfKind(out, models.WarnUnresolvedRef)) != 1 {
		t.Errorf("warnings = %+v", out.Warnings)
	}
	if len(warningsOfKind(out, models.WarnTagPrefixMismatch)) != 0 {
		t.Errorf("prefix matched a known repo; mismatch warning is wrong")
	}
}

func TestMergeUnknownPrefixGetsMismatchWarning(t *testing.T) {
	t.Parallel()

	a := report(t, "svc-a", &models.ThreatModel{
		Flows: []models.Flow{{Source: "#svc-c.queue", Target: "db"}},
	})

	out := Merge([]LoadResult{a}, Options{Workspace: "ws", Now: mergeNow})

	if len(out.UnresolvedRefs) != 1 || out.UnresolvedRefs[0].InferredRepo != "" {
		t.Fatalf("unresolved = %+v", out.UnresolvedRefs)
	}
	if len(warningsOfKind(out, models.WarnTagPrefixMismatch)) != 1 {
		t.Errorf("warnings = %+v", out.Warnings)
	}
}

func TestMergeLoadIsolation(t *testing.T) {
	t.Parallel()

	good := report(t, "svc-a", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"api"}}},
	})
	bad := LoadResult{Name: "svc-b", Err: os.ErrNotExist}

	out := Merge([]LoadResult{good, bad}, Options{Workspace: "ws", Now: mergeNow})

	if out.Totals.Repos != 2 || out.Totals.ReposLoaded != 1 {
		t.Errorf("totals = %+v", out.Totals)
	}
	var failed *models.RepoStatus
	for i := range out.RepoStatuses {
		if out.RepoStatuses[i].Name == "svc-b" {
			failed = &out.RepoStatuses[i]
		}
	}
	if failed == nil || failed.Loaded || failed.Error == "" {
		t.Errorf("statuses = %+v", out.RepoStatuses)
	}
	if len(out.Model.Assets) != 1 {
		t.Errorf("combined assets = %+v", out.Model.Assets)
	}
}

func TestMergeExpectedButAbsent(t *testing.T) {
	t.Parallel()

	a := report(t, "svc-a", &models.ThreatModel{})
	out := Merge([]LoadResult{a}, Options{
		Workspace: "ws",
		Expected:  []string{"svc-a", "svc-missing"},
		Now:       mergeNow,
	})

	if len(out.RepoStatuses) != 2 {
		t.Fatalf("statuses = %+v", out.RepoStatuses)
	}
	last := out.RepoStatuses[1]
	if last.Name != "svc-missing" || last.Loaded || last.Error == "" {
		t.Errorf("status = %+v", last)
	}
}

func TestMergeStaleAndSchemaWarnings(t *testing.T) {
	t.Parallel()

	fresh := report(t, "svc-a", &models.ThreatModel{})
	stale := report(t, "svc-b", &models.ThreatModel{})
	stale.Report.GeneratedAt = mergeNow.Add(-200 * time.Hour)
	stale.Report.SchemaVersion = "0.9"

	out := Merge([]LoadResult{fresh, stale}, Options{Workspace: "ws", Now: mergeNow})

	staleWarns := warningsOfKind(out, models.WarnStaleReport)
	if len(staleWarns) != 1 || staleWarns[0].Repos[0] != "svc-b" {
		t.Errorf("stale warnings = %+v", staleWarns)
	}
	if len(warningsOfKind(out, models.WarnSchemaMismatch)) != 1 {
		t.Errorf("warnings = %+v", out.Warnings)
	}
}

func TestMergeRelationshipsNeverDeduplicated(t *testing.T) {
	t.Parallel()

	mit := models.Mitigation{Asset: "shared.cache", Threat: "Poisoning", Control: "TTL"}
	a := report(t, "svc-a", &models.ThreatModel{Mitigations: []models.Mitigation{mit}})
	b := report(t, "svc-b", &models.ThreatModel{Mitigations: []models.Mitigation{mit}})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	if len(out.Model.Mitigations) != 2 {
		t.Errorf("mitigations = %+v", out.Model.Mitigations)
	}
}

func TestMergeBoundariesNeverDeduplicated(t *testing.T) {
	t.Parallel()

	// The id makes both statements candidates for the registry, but a
	// boundary is a relationship: both rows must survive the merge.
	edge := models.Boundary{AssetA: "web", AssetB: "api", ID: "edge"}
	a := report(t, "svc-a", &models.ThreatModel{Boundaries: []models.Boundary{edge}})
	b := report(t, "svc-b", &models.ThreatModel{Boundaries: []models.Boundary{edge}})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	if len(out.Model.Boundaries) != 2 {
		t.Errorf("boundaries = %d, want 2", len(out.Model.Boundaries))
	}
	// The shared id still surfaces as a duplicate-tag warning.
	if len(warningsOfKind(out, models.WarnDuplicateTag)) != 1 {
		t.Errorf("warnings = %+v", out.Warnings)
	}
}

func TestMergeTagsFoldCase(t *testing.T) {
	t.Parallel()

	a := report(t, "svc-a", &models.ThreatModel{
		Assets: []models.Asset{{Path: []string{"shared", "cache"}, ID: "Shared.Cache"}},
	})
	b := report(t, "svc-b", &models.ThreatModel{
		Mitigations: []models.Mitigation{{Asset: "#shared.cache", Threat: "Poisoning"}},
	})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	if len(out.UnresolvedRefs) != 0 {
		t.Errorf("case-variant tag left unresolved: %+v", out.UnresolvedRefs)
	}
	if len(out.TagRegistry) != 1 || out.TagRegistry[0].Tag != "shared.cache" {
		t.Errorf("registry = %+v", out.TagRegistry)
	}
}

func TestMergeCoverageRecomputedFromSums(t *testing.T) {
	t.Parallel()

	a := report(t, "svc-a", &models.ThreatModel{
		Coverage: models.Coverage{TotalSymbols: 10, AnnotatedSymbols: 10, CoveragePercent: 100},
	})
	b := report(t, "svc-b", &models.ThreatModel{
		Coverage: models.Coverage{TotalSymbols: 30, AnnotatedSymbols: 0, CoveragePercent: 0},
	})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	cov := out.Model.Coverage
	if cov.TotalSymbols != 40 || cov.AnnotatedSymbols != 10 {
		t.Errorf("coverage = %+v", cov)
	}
	// 10/40: summed, not the 50 an average of percentages would give.
	if cov.CoveragePercent != 25 {
		t.Errorf("percent = %d, want 25", cov.CoveragePercent)
	}
}

func TestMergeUnmitigatedCrossRepo(t *testing.T) {
	t.Parallel()

	// The exposure lives in svc-a, its mitigation in svc-b; the merged
	// model sees both, so the workspace-level count is zero.
	a := report(t, "svc-a", &models.ThreatModel{
		Exposures: []models.Exposure{{Asset: "shared.cache", Threat: "Poisoning"}},
	})
	b := report(t, "svc-b", &models.ThreatModel{
		Mitigations: []models.Mitigation{{Asset: "shared.cache", Threat: "Poisoning", Control: "TTL"}},
	})

	out := Merge([]LoadResult{a, b}, Options{Workspace: "ws", Now: mergeNow})
	if out.Totals.UnmitigatedExposures != 0 {
		t.Errorf("unmitigated = %d, want 0", out.Totals.UnmitigatedExposures)
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rep := models.RepoReport{
		Repo:          "svc-a",
		GeneratedAt:   mergeNow,
		SchemaVersion: models.SchemaVersion,
		Model: &models.ThreatModel{
			Assets: []models.Asset{{Path: []string{"api"}, ID: "api"}},
		},
	}
	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "svc-a.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res := LoadFile(path)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Name != "svc-a" || len(res.Report.Model.Assets) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestLoadFileFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	missing := LoadFile(filepath.Join(dir, "nope.json"))
	if missing.Err == nil || missing.Name != "nope" {
		t.Errorf("missing = %+v", missing)
	}

	garbled := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(garbled, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := LoadFile(garbled); res.Err == nil {
		t.Error("garbled report loaded without error")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"repo":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := LoadFile(empty); res.Err == nil {
		t.Error("model-less report loaded without error")
	}
}
