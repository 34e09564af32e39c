package builder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/galsec/galscan/internal/grammar"
	"github.com/galsec/galscan/internal/models"
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"vendor":       {},
	"__pycache__":  {},
	"venv":         {},
	".venv":        {},
	"dist":         {},
	"build":        {},
	"target":       {},
	".tox":         {},
}

// discover returns the forward-slash relative paths of every scannable
// file under cfg.Root, stably sorted. A file is scannable when its
// extension has a comment style and it passes the include/exclude and
// gitignore filters.
func discover(cfg *models.Config) ([]string, error) {
	var include, exclude *ignore.GitIgnore
	if len(cfg.Include) > 0 {
		include = ignore.CompileIgnoreLines(cfg.Include...)
	}
	if len(cfg.Exclude) > 0 {
		exclude = ignore.CompileIgnoreLines(cfg.Exclude...)
	}
	var gi *ignore.GitIgnore
	if cfg.UseGitignore {
		gi, _ = ignore.CompileIgnoreFile(filepath.Join(cfg.Root, ".gitignore"))
	}

	var results []string

	err := filepath.WalkDir(cfg.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}

		name := d.Name()

		if d.IsDir() {
			if path == cfg.Root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if _, ok := grammar.StyleForExtension(filepath.Ext(name)); !ok {
			return nil
		}

		rel, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if include != nil && !include.MatchesPath(rel) {
			return nil
		}
		if exclude != nil && exclude.MatchesPath(rel) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}
