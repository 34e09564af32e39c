package models

import "time"

// RepoReport is the per-repository scan artifact written by `galscan scan`
// and consumed by the merge engine.
type RepoReport struct {
	Repo          string            `json:"repo"`
	Commit        string            `json:"commit,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
	SchemaVersion string            `json:"schema_version"`
	Model         *ThreatModel      `json:"model"`
	Diagnostics   []ParseDiagnostic `json:"diagnostics,omitempty"`
}

// RepoStatus records the load outcome for one repository in a merge.
// A failed load never aborts the batch; it is recorded here instead.
type RepoStatus struct {
	Name        string    `json:"name"`
	Loaded      bool      `json:"loaded"`
	Error       string    `json:"error,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitzero"`
	Annotations int       `json:"annotations"`
}

// TagEntry is one resolved entry in the merged tag registry.
type TagEntry struct {
	Tag  string `json:"tag"`
	Repo string `json:"repo"`
	Kind string `json:"kind"` // asset, threat, control, boundary
	File string `json:"file"`
	Line int    `json:"line"`
}

// UnresolvedRef is a cross-repository tag reference with no owning
// definition anywhere in the merged set.
type UnresolvedRef struct {
	Tag          string           `json:"tag"`
	InferredRepo string           `json:"inferred_repo,omitempty"`
	Locations    []SourceLocation `json:"locations"`
}

// Merge warning kinds.
const (
	WarnDuplicateTag      = "duplicate_tag"
	WarnUnresolvedRef     = "unresolved_ref"
	WarnTagPrefixMismatch = "tag_prefix_mismatch"
	WarnStaleReport       = "stale_report"
	WarnSchemaMismatch    = "schema_mismatch"
)

// MergeWarning is a non-fatal finding surfaced by the merge engine.
type MergeWarning struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Tag     string   `json:"tag,omitempty"`
	Repos   []string `json:"repos,omitempty"`
}

// MergeTotals are the summed metrics over the combined model.
type MergeTotals struct {
	Repos                int `json:"repos"`
	ReposLoaded          int `json:"repos_loaded"`
	Assets               int `json:"assets"`
	Threats              int `json:"threats"`
	Controls             int `json:"controls"`
	Mitigations          int `json:"mitigations"`
	Exposures            int `json:"exposures"`
	Acceptances          int `json:"acceptances"`
	Flows                int `json:"flows"`
	Annotations          int `json:"annotations"`
	UnmitigatedExposures int `json:"unmitigated_exposures"`
}

// MergedReport is the cross-repository artifact produced by the merge
// engine. Like ThreatModel it is immutable once returned.
type MergedReport struct {
	Workspace      string          `json:"workspace"`
	MergedAt       time.Time       `json:"merged_at"`
	SchemaVersion  string          `json:"schema_version"`
	RepoStatuses   []RepoStatus    `json:"repo_statuses"`
	TagRegistry    []TagEntry      `json:"tag_registry,omitempty"`
	UnresolvedRefs []UnresolvedRef `json:"unresolved_refs,omitempty"`
	Warnings       []MergeWarning  `json:"warnings,omitempty"`
	Totals         MergeTotals     `json:"totals"`
	Model          *ThreatModel    `json:"model"`
}
