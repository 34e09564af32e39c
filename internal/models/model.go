package models

import (
	"strings"
	"time"
)

// SchemaVersion identifies the report format written and read by galscan.
const SchemaVersion = "1.0"

// SourceLocation points at the annotation's source line. File paths are
// forward-slash normalized and relative to the project root.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Raw  string `json:"raw,omitempty"`
}

// Asset is a dotted hierarchical component name, e.g. api.auth.sessions.
type Asset struct {
	Path        []string       `json:"path"`
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    SourceLocation `json:"location"`
}

// Name returns the dotted form of the asset path.
func (a Asset) Name() string {
	return strings.Join(a.Path, ".")
}

// Threat is a named threat definition.
type Threat struct {
	Name        string         `json:"name"`
	Severity    Severity       `json:"severity,omitempty"`
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    SourceLocation `json:"location"`
}

// Control is a named mitigation mechanism definition.
type Control struct {
	Name        string         `json:"name"`
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description,omitempty"`
	Location    SourceLocation `json:"location"`
}

// Rel is the base every relationship annotation shares.
type Rel struct {
	Description string         `json:"description,omitempty"`
	Location    SourceLocation `json:"location"`
}

// Mitigation records that a control addresses a threat against an asset.
// Control may be empty when the annotation named none.
type Mitigation struct {
	Rel
	Asset   string `json:"asset"`
	Threat  string `json:"threat"`
	Control string `json:"control,omitempty"`
}

// Exposure records that an asset is exposed to a threat.
type Exposure struct {
	Rel
	Asset        string   `json:"asset"`
	Threat       string   `json:"threat"`
	Severity     Severity `json:"severity,omitempty"`
	ExternalRefs []string `json:"external_refs,omitempty"`
}

// Acceptance records a deliberately accepted risk.
type Acceptance struct {
	Rel
	Asset  string `json:"asset"`
	Threat string `json:"threat"`
}

// Transfer records a threat transferred from one asset to another.
type Transfer struct {
	Rel
	Threat string `json:"threat"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Flow records data flowing between two assets.
type Flow struct {
	Rel
	Source    string `json:"source"`
	Target    string `json:"target"`
	Mechanism string `json:"mechanism,omitempty"`
}

// Boundary records a trust boundary between two assets.
type Boundary struct {
	Rel
	AssetA string `json:"asset_a"`
	AssetB string `json:"asset_b"`
	ID     string `json:"id,omitempty"`
}

// Validation records that a control validates input for an asset.
type Validation struct {
	Rel
	Control string `json:"control"`
	Asset   string `json:"asset"`
}

// Audit marks an asset for periodic review.
type Audit struct {
	Rel
	Asset string `json:"asset"`
}

// Ownership assigns an owner (team or person) to an asset.
type Ownership struct {
	Rel
	Owner string `json:"owner"`
	Asset string `json:"asset"`
}

// DataHandling records the data classification an asset processes.
type DataHandling struct {
	Rel
	Asset          string `json:"asset"`
	Classification string `json:"classification"`
}

// Classifications lists the accepted @handles classifications.
var Classifications = []string{"pii", "phi", "financial", "secrets", "internal", "public"}

// Assumption records a security assumption about an asset.
type Assumption struct {
	Rel
	Asset string `json:"asset"`
}

// Shield marks a code region exempt from coverage checks.
type Shield struct {
	Rel
	Reason string `json:"reason,omitempty"`
}

// Comment is a free-text annotation with no structural effect.
type Comment struct {
	Rel
}

// UncoveredSymbol is a security-relevant declaration with no annotation.
type UncoveredSymbol struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Coverage summarizes how many security-relevant symbols carry annotations.
type Coverage struct {
	TotalSymbols        int               `json:"total_symbols"`
	AnnotatedSymbols    int               `json:"annotated_symbols"`
	CoveragePercent     int               `json:"coverage_percent"`
	UnannotatedCritical []UncoveredSymbol `json:"unannotated_critical,omitempty"`
}

// FileStats counts and lists the files the builder visited.
type FileStats struct {
	Scanned          int      `json:"scanned"`
	Annotated        int      `json:"annotated"`
	Unannotated      int      `json:"unannotated"`
	ScannedFiles     []string `json:"scanned_files,omitempty"`
	UnannotatedFiles []string `json:"unannotated_files,omitempty"`
}

// ThreatModel is the aggregate produced by one build or merge. It is an
// immutable snapshot: nothing mutates a model after construction, and
// consumers needing fresh data rebuild from scratch.
type ThreatModel struct {
	Project       string    `json:"project"`
	GeneratedAt   time.Time `json:"generated_at"`
	SchemaVersion string    `json:"schema_version"`

	Files FileStats `json:"files"`

	Assets   []Asset   `json:"assets,omitempty"`
	Threats  []Threat  `json:"threats,omitempty"`
	Controls []Control `json:"controls,omitempty"`

	Mitigations  []Mitigation   `json:"mitigations,omitempty"`
	Exposures    []Exposure     `json:"exposures,omitempty"`
	Acceptances  []Acceptance   `json:"acceptances,omitempty"`
	Transfers    []Transfer     `json:"transfers,omitempty"`
	Flows        []Flow         `json:"flows,omitempty"`
	Boundaries   []Boundary     `json:"boundaries,omitempty"`
	Validations  []Validation   `json:"validations,omitempty"`
	Audits       []Audit        `json:"audits,omitempty"`
	Ownerships   []Ownership    `json:"ownerships,omitempty"`
	DataHandling []DataHandling `json:"data_handling,omitempty"`
	Assumptions  []Assumption   `json:"assumptions,omitempty"`
	Shields      []Shield       `json:"shields,omitempty"`
	Comments     []Comment      `json:"comments,omitempty"`

	Coverage Coverage `json:"coverage"`
}

// CoveragePercent rounds 100*annotated/total, 0 when total is 0.
func CoveragePercent(annotated, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(annotated)/float64(total)*100 + 0.5)
}

// NormalizeName strips one leading '#', lowercases, and collapses internal
// whitespace. It is idempotent.
func NormalizeName(s string) string {
	s = strings.TrimPrefix(s, "#")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchKey builds the asset::threat key used for all mitigation, acceptance,
// and coverage matching.
func MatchKey(asset, threat string) string {
	return NormalizeName(asset) + "::" + NormalizeName(threat)
}

// MitigationKeys returns the set of asset::threat keys with a mitigation.
func (m *ThreatModel) MitigationKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(m.Mitigations))
	for _, mit := range m.Mitigations {
		keys[MatchKey(mit.Asset, mit.Threat)] = struct{}{}
	}
	return keys
}

// AcceptanceKeys returns the set of asset::threat keys with an acceptance.
func (m *ThreatModel) AcceptanceKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(m.Acceptances))
	for _, acc := range m.Acceptances {
		keys[MatchKey(acc.Asset, acc.Threat)] = struct{}{}
	}
	return keys
}

// UnmitigatedCount counts exposures with neither a mitigation nor an
// acceptance for their asset::threat key.
func (m *ThreatModel) UnmitigatedCount() int {
	mitigated := m.MitigationKeys()
	accepted := m.AcceptanceKeys()
	n := 0
	for _, exp := range m.Exposures {
		key := MatchKey(exp.Asset, exp.Threat)
		if _, ok := mitigated[key]; ok {
			continue
		}
		if _, ok := accepted[key]; ok {
			continue
		}
		n++
	}
	return n
}

// AnnotationCount is the total number of annotations in the model.
func (m *ThreatModel) AnnotationCount() int {
	return len(m.Assets) + len(m.Threats) + len(m.Controls) +
		len(m.Mitigations) + len(m.Exposures) + len(m.Acceptances) +
		len(m.Transfers) + len(m.Flows) + len(m.Boundaries) +
		len(m.Validations) + len(m.Audits) + len(m.Ownerships) +
		len(m.DataHandling) + len(m.Assumptions) + len(m.Shields) +
		len(m.Comments)
}
