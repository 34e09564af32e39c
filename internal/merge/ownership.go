package merge

import "strings"

// MatchKind classifies how a tag prefix matched a repository name.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
)

// serviceSuffixes are naming-convention suffixes ignored when comparing a
// tag prefix against a repository name.
var serviceSuffixes = []string{"-service", "-svc", "-lib", "-api", "-worker"}

// TagPrefix returns the first dot segment of a tag id, its conventional
// repository hint. The leading '#' is tolerated.
func TagPrefix(tag string) string {
	tag = strings.TrimPrefix(tag, "#")
	if i := strings.IndexByte(tag, '.'); i >= 0 {
		return tag[:i]
	}
	return tag
}

func stripServiceSuffix(name string) string {
	for _, s := range serviceSuffixes {
		if trimmed, ok := strings.CutSuffix(name, s); ok {
			return trimmed
		}
	}
	return name
}

// MatchRepo resolves a tag prefix against repository names, in order. An
// exact name match wins outright; otherwise the first fuzzy match wins:
// the repository name is a prefix or suffix of the tag prefix, or the two
// are equal once a common service suffix is stripped. Comparison is
// case-insensitive.
func MatchRepo(tagPrefix string, repos []string) (string, MatchKind) {
	prefix := strings.ToLower(tagPrefix)
	if prefix == "" {
		return "", MatchNone
	}

	for _, repo := range repos {
		if strings.ToLower(repo) == prefix {
			return repo, MatchExact
		}
	}

	stripped := stripServiceSuffix(prefix)
	for _, repo := range repos {
		lower := strings.ToLower(repo)
		if strings.HasPrefix(prefix, lower) || strings.HasSuffix(prefix, lower) {
			return repo, MatchFuzzy
		}
		if stripServiceSuffix(lower) == stripped {
			return repo, MatchFuzzy
		}
	}

	return "", MatchNone
}
