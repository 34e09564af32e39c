package models

import "fmt"

// DiagLevel is the severity of a parse or validation diagnostic.
type DiagLevel string

const (
	DiagError   DiagLevel = "error"
	DiagWarning DiagLevel = "warning"
)

// ParseDiagnostic is the uniform error-reporting shape every surface
// consumes. Diagnostics are collected, never thrown: a malformed line
// produces one of these and scanning continues.
type ParseDiagnostic struct {
	Level   DiagLevel `json:"level"`
	File    string    `json:"file"`
	Line    int       `json:"line"`
	Message string    `json:"message"`
	Raw     string    `json:"raw,omitempty"`
}

func (d ParseDiagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Level, d.Message)
}
