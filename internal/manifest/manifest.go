// Package manifest reads the per-repository workspace manifest that names
// the repositories expected to contribute reports to a merge.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Repo is one repository entry in the workspace manifest.
type Repo struct {
	Name     string `yaml:"name" json:"name"`
	Registry string `yaml:"registry,omitempty" json:"registry,omitempty"`
}

// Manifest describes the workspace a repository belongs to.
type Manifest struct {
	Workspace string `yaml:"workspace" json:"workspace"`
	ThisRepo  string `yaml:"this_repo" json:"this_repo"`
	Repos     []Repo `yaml:"repos" json:"repos"`
}

// RepoNames returns the expected repository names in manifest order.
func (m *Manifest) RepoNames() []string {
	names := make([]string, 0, len(m.Repos))
	for _, r := range m.Repos {
		names = append(names, r.Name)
	}
	return names
}

// Load reads a manifest, decoding YAML or JSON by file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &m)
	default:
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	if m.Workspace == "" {
		return nil, fmt.Errorf("manifest %s names no workspace", path)
	}
	return &m, nil
}
