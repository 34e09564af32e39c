package builder

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
)

// projectName resolves the model's project name: explicit config, then the
// root go.mod module path, then the root directory name.
func projectName(root, configured string) string {
	if configured != "" {
		return configured
	}
	if data, err := os.ReadFile(filepath.Join(root, "go.mod")); err == nil {
		if f, err := modfile.ParseLax("go.mod", data, nil); err == nil && f.Module != nil {
			return path.Base(f.Module.Mod.Path)
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(root)
	}
	return filepath.Base(abs)
}

// GitCommit returns the HEAD commit of root, or "" when root is not a git
// repository or git is unavailable.
func GitCommit(root string) string {
	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
