// Package grammar recognizes GAL annotation lines inside source comments.
//
// One physical line either is not an annotation, parses into an Annotation,
// or produces an error diagnostic. A malformed line never aborts scanning;
// that resilience is the package's core contract.
package grammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/galsec/galscan/internal/models"
)

// Annotation is one parsed GAL annotation. Slots holds the verb's
// positional arguments keyed by slot name (see verbs.go).
type Annotation struct {
	Verb         Verb
	Slots        map[string]string
	ID           string
	Severity     models.Severity
	ExternalRefs []string
	Description  string
	Location     models.SourceLocation
}

// Slot returns a positional argument by name, or "" when absent.
func (a *Annotation) Slot(name string) string {
	return a.Slots[name]
}

var (
	// descRe finds the start of a trailing -- "description".
	descRe = regexp.MustCompile(`(?:^|\s)--\s*"`)
	// idRe matches a parenthesized (#id) tag.
	idRe = regexp.MustCompile(`\(#([A-Za-z0-9][A-Za-z0-9_.\-]*)\)`)
	// qualRe matches a bracketed qualifier like [critical] or [P0].
	qualRe = regexp.MustCompile(`\[([^\[\]]+)\]`)
	// refRe matches an external reference token like cwe:CWE-89.
	refRe = regexp.MustCompile(`^(?i:cwe|owasp|capec|attack):\S+$`)
	// contRe matches a continuation description line after prefix stripping.
	contRe = regexp.MustCompile(`^--\s*"`)
)

// ScanLines runs the line grammar over a whole file. file is the
// forward-slash relative path recorded in every location. A continuation
// line (-- "..." on the immediately following physical line) extends the
// preceding annotation's description and inherits its location.
func ScanLines(file string, lines []string, style CommentStyle) ([]Annotation, []models.ParseDiagnostic) {
	var (
		annos []Annotation
		diags []models.ParseDiagnostic
		// index into annos of an annotation whose description may be
		// continued by the next physical line, -1 otherwise
		open = -1
	)

	for i, line := range lines {
		lineNum := i + 1

		rest, isComment := style.Strip(line)
		if !isComment {
			open = -1
			continue
		}

		if contRe.MatchString(rest) {
			if open < 0 {
				continue // stray description line, plain comment
			}
			desc, _, ok := parseQuoted(rest[strings.Index(rest, `"`)+1:])
			if !ok {
				diags = append(diags, diag(file, lineNum, line, "unterminated description quote"))
				open = -1
				continue
			}
			if annos[open].Description != "" {
				annos[open].Description += " " + desc
			} else {
				annos[open].Description = desc
			}
			continue
		}
		open = -1

		if !strings.HasPrefix(rest, "@") {
			continue
		}
		verbTok, body := rest, ""
		if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
			verbTok, body = rest[:sp], rest[sp+1:]
		}
		def, known := verbTable[strings.ToLower(verbTok[1:])]
		if !known {
			// Ordinary doc-comment directives like @param stay invisible.
			continue
		}

		anno, d := parseAnnotation(def, body, models.SourceLocation{
			File: file,
			Line: lineNum,
			Raw:  strings.TrimSpace(line),
		})
		if d != nil {
			d.File, d.Line, d.Raw = file, lineNum, strings.TrimSpace(line)
			diags = append(diags, *d)
			continue
		}
		annos = append(annos, *anno)
		open = len(annos) - 1
	}

	return annos, diags
}

// parseAnnotation parses the body after the verb token. The returned
// diagnostic has its file/line/raw filled in by the caller.
func parseAnnotation(def verbDef, body string, loc models.SourceLocation) (*Annotation, *models.ParseDiagnostic) {
	a := &Annotation{Verb: def.verb, Location: loc}

	// Trailing description.
	if m := descRe.FindStringIndex(body); m != nil {
		quoted := body[m[1]:]
		desc, _, ok := parseQuoted(quoted)
		if !ok {
			return nil, diagp("@%s: unterminated description quote", def.verb)
		}
		a.Description = desc
		body = body[:m[0]]
	}

	// Parenthesized (#id).
	if m := idRe.FindStringSubmatchIndex(body); m != nil {
		a.ID = body[m[2]:m[3]]
		body = body[:m[0]] + body[m[1]:]
	}

	// Bracketed severity qualifier.
	if m := qualRe.FindStringSubmatchIndex(body); m != nil {
		sev, ok := models.ParseSeverity(body[m[2]:m[3]])
		if !ok {
			return nil, diagp("@%s: unknown qualifier [%s]", def.verb, body[m[2]:m[3]])
		}
		a.Severity = sev
		body = body[:m[0]] + body[m[1]:]
	}

	// severity: qualifiers and external refs hide among the tokens.
	var positional []string
	for _, tok := range strings.Fields(body) {
		if v, found := strings.CutPrefix(strings.ToLower(tok), "severity:"); found {
			sev, ok := models.ParseSeverity(v)
			if !ok {
				return nil, diagp("@%s: unknown qualifier severity:%s", def.verb, v)
			}
			a.Severity = sev
			continue
		}
		if refRe.MatchString(tok) {
			a.ExternalRefs = append(a.ExternalRefs, tok)
			continue
		}
		positional = append(positional, tok)
	}

	slots, missing := fillSlots(def, positional)
	if missing != "" {
		return nil, diagp("@%s: missing required '%s' argument", def.verb, missing)
	}
	a.Slots = slots

	if def.verb == VerbHandles {
		if c, ok := slots[SlotClassification]; ok {
			if !validClassification(c) {
				return nil, diagp("@handles: unknown classification %q", c)
			}
			slots[SlotClassification] = strings.ToLower(c)
		}
	}

	return a, nil
}

func validClassification(c string) bool {
	c = strings.ToLower(c)
	for _, v := range models.Classifications {
		if c == v {
			return true
		}
	}
	return false
}

// parseQuoted consumes a quoted string body (opening quote already
// stripped), unescaping \" and \\. ok is false when no closing quote
// is found.
func parseQuoted(s string) (value, rest string, ok bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", false
}

func diag(file string, line int, raw, msg string) models.ParseDiagnostic {
	return models.ParseDiagnostic{
		Level:   models.DiagError,
		File:    file,
		Line:    line,
		Message: msg,
		Raw:     strings.TrimSpace(raw),
	}
}

func diagp(format string, args ...any) *models.ParseDiagnostic {
	return &models.ParseDiagnostic{
		Level:   models.DiagError,
		Message: fmt.Sprintf(format, args...),
	}
}
