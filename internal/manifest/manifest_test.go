package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "galscan.yaml", `
workspace: acme-platform
this_repo: svc-a
repos:
  - name: svc-a
  - name: svc-b
    registry: https://reports.internal/svc-b.json
`)

	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Workspace != "acme-platform" || m.ThisRepo != "svc-a" {
		t.Errorf("manifest = %+v", m)
	}
	if !reflect.DeepEqual(m.RepoNames(), []string{"svc-a", "svc-b"}) {
		t.Errorf("names = %v", m.RepoNames())
	}
	if m.Repos[1].Registry == "" {
		t.Errorf("registry not decoded: %+v", m.Repos[1])
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, "galscan.json",
		`{"workspace":"acme-platform","repos":[{"name":"svc-a"}]}`)

	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Workspace != "acme-platform" || len(m.Repos) != 1 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file loaded without error")
	}

	noWorkspace := writeManifest(t, "galscan.yaml", "repos:\n  - name: svc-a\n")
	if _, err := Load(noWorkspace); err == nil {
		t.Error("workspace-less manifest loaded without error")
	}

	garbled := writeManifest(t, "bad.yaml", "workspace: [unclosed\n")
	if _, err := Load(garbled); err == nil {
		t.Error("malformed manifest loaded without error")
	}
}
