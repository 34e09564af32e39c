package grammar

import "strings"

// CommentStyle describes how comments begin (and optionally end) for a
// file family. Prefixes are tried in order; the first match wins.
type CommentStyle struct {
	Prefixes []string
	Suffix   string // stripped from the end when present, e.g. "-->"
}

var (
	styleSlash = CommentStyle{Prefixes: []string{"/*", "//", "*"}, Suffix: "*/"}
	styleHash  = CommentStyle{Prefixes: []string{"#"}}
	styleDash  = CommentStyle{Prefixes: []string{"--"}}
	styleXML   = CommentStyle{Prefixes: []string{"<!--"}, Suffix: "-->"}
)

// styleByExt maps a lowercased file extension to its comment style.
// Extensions absent from this table are not scanned at all.
var styleByExt = map[string]CommentStyle{
	".go":    styleSlash,
	".js":    styleSlash,
	".jsx":   styleSlash,
	".ts":    styleSlash,
	".tsx":   styleSlash,
	".java":  styleSlash,
	".c":     styleSlash,
	".h":     styleSlash,
	".cc":    styleSlash,
	".cpp":   styleSlash,
	".hpp":   styleSlash,
	".cs":    styleSlash,
	".rs":    styleSlash,
	".swift": styleSlash,
	".kt":    styleSlash,
	".kts":   styleSlash,
	".scala": styleSlash,
	".php":   styleSlash,
	".dart":  styleSlash,
	".zig":   styleSlash,

	".py":   styleHash,
	".rb":   styleHash,
	".sh":   styleHash,
	".bash": styleHash,
	".zsh":  styleHash,
	".pl":   styleHash,
	".r":    styleHash,
	".yaml": styleHash,
	".yml":  styleHash,
	".toml": styleHash,
	".tf":   styleHash,
	".ex":   styleHash,
	".exs":  styleHash,
	".nim":  styleHash,

	".sql": styleDash,
	".lua": styleDash,
	".hs":  styleDash,
	".elm": styleDash,

	".html":     styleXML,
	".htm":      styleXML,
	".xml":      styleXML,
	".md":       styleXML,
	".markdown": styleXML,
	".svg":      styleXML,
}

// StyleForExtension returns the comment style for a file extension
// (including the leading dot). ok is false for unrecognized extensions.
func StyleForExtension(ext string) (CommentStyle, bool) {
	s, ok := styleByExt[strings.ToLower(ext)]
	return s, ok
}

// Strip removes the style's comment prefix (and trailing suffix) from a
// physical line. ok is false when the line is not a comment in this style.
func (s CommentStyle) Strip(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, p := range s.Prefixes {
		if !strings.HasPrefix(trimmed, p) {
			continue
		}
		rest := trimmed[len(p):]
		if s.Suffix != "" {
			rest = strings.TrimSuffix(strings.TrimRight(rest, " \t"), s.Suffix)
		}
		return strings.Trim(rest, " \t"), true
	}
	return "", false
}
