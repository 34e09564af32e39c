package builder

import (
	"regexp"
	"strings"

	"github.com/galsec/galscan/internal/grammar"
	"github.com/galsec/galscan/internal/models"
)

// annotationWindow is how many lines above a declaration an annotation may
// sit and still count as covering it.
const annotationWindow = 3

// declPatterns recognize symbol declarations across comment-style families.
// This is deliberately a line heuristic, not a language parse.
var declPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"method", regexp.MustCompile(`^func\s+\([^)]+\)\s+([A-Za-z_]\w*)\s*\(`)},
	{"function", regexp.MustCompile(`^func\s+([A-Za-z_]\w*)\s*\(`)},
	{"function", regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)},
	{"function", regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_]\w*)`)},
	{"function", regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`)},
	{"handler", regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\(|function)`)},
}

// securityTerms mark a symbol name as security-relevant.
var securityTerms = []string{
	"auth", "token", "password", "secret", "crypt", "query", "sql",
	"exec", "spawn", "eval", "deserial", "login", "session",
	"permission", "sanitize", "escape", "upload", "download", "sign",
	"verify", "hash", "random", "cookie", "cors", "csrf",
}

func declarationOn(line string) (name, kind string, ok bool) {
	for _, p := range declPatterns {
		if m := p.re.FindStringSubmatch(line); m != nil {
			return m[1], p.kind, true
		}
	}
	return "", "", false
}

func securityRelevant(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range securityTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// region is an inclusive line range covered by @shield:begin/@shield:end.
type region struct {
	start, end int
}

// shieldRegions pairs begin/end shield markers for one file. An unmatched
// begin extends to the end of the file; both unmatched forms produce a
// warning diagnostic.
func shieldRegions(file string, annos []grammar.Annotation, lastLine int) ([]region, []models.ParseDiagnostic) {
	var (
		regions []region
		diags   []models.ParseDiagnostic
		openAt  = -1
	)
	for _, a := range annos {
		switch a.Verb {
		case grammar.VerbShieldBegin:
			if openAt >= 0 {
				regions = append(regions, region{openAt, a.Location.Line})
			}
			openAt = a.Location.Line
		case grammar.VerbShieldEnd:
			if openAt < 0 {
				diags = append(diags, models.ParseDiagnostic{
					Level:   models.DiagWarning,
					File:    file,
					Line:    a.Location.Line,
					Message: "@shield:end without matching @shield:begin",
				})
				continue
			}
			regions = append(regions, region{openAt, a.Location.Line})
			openAt = -1
		}
	}
	if openAt >= 0 {
		diags = append(diags, models.ParseDiagnostic{
			Level:   models.DiagWarning,
			File:    file,
			Line:    openAt,
			Message: "unclosed @shield:begin, region extends to end of file",
		})
		regions = append(regions, region{openAt, lastLine})
	}
	return regions, diags
}

func inRegions(regions []region, line int) bool {
	for _, r := range regions {
		if line >= r.start && line <= r.end {
			return true
		}
	}
	return false
}

// fileCoverage runs the structural pass over one file: find declarations
// that look security-relevant (or are shielded), and decide whether each
// carries an annotation.
type fileCoverage struct {
	Total     int
	Annotated int
	Misses    []models.UncoveredSymbol
	Diags     []models.ParseDiagnostic
}

func coverFile(file string, lines []string, annos []grammar.Annotation) fileCoverage {
	var cov fileCoverage

	regions, diags := shieldRegions(file, annos, len(lines))
	cov.Diags = diags

	annoLines := make(map[int]struct{}, len(annos))
	for _, a := range annos {
		annoLines[a.Location.Line] = struct{}{}
	}

	for i, line := range lines {
		lineNum := i + 1
		name, kind, ok := declarationOn(line)
		if !ok {
			continue
		}
		shielded := inRegions(regions, lineNum)
		if !securityRelevant(name) && !shielded {
			continue
		}
		cov.Total++

		if shielded || annotatedNear(annoLines, lineNum) {
			cov.Annotated++
			continue
		}
		cov.Misses = append(cov.Misses, models.UncoveredSymbol{
			File: file,
			Line: lineNum,
			Kind: kind,
			Name: name,
		})
	}
	return cov
}

func annotatedNear(annoLines map[int]struct{}, declLine int) bool {
	for l := declLine - annotationWindow; l <= declLine; l++ {
		if _, ok := annoLines[l]; ok {
			return true
		}
	}
	return false
}
