package models

import "strings"

// Severity is the normalized severity of a threat or exposure.
// The zero value means the annotation did not specify one.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnset    Severity = ""
)

// severityAliases maps every accepted spelling (lowercased) to its
// canonical severity. P0-P3 are the legacy priority aliases.
var severityAliases = map[string]Severity{
	"critical": SeverityCritical,
	"high":     SeverityHigh,
	"medium":   SeverityMedium,
	"low":      SeverityLow,
	"p0":       SeverityCritical,
	"p1":       SeverityHigh,
	"p2":       SeverityMedium,
	"p3":       SeverityLow,
}

// ParseSeverity normalizes a severity spelling. It returns false for
// unrecognized input, including the empty string.
func ParseSeverity(raw string) (Severity, bool) {
	s, ok := severityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// Weight returns a numeric weight for sorting (higher = more severe).
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}
