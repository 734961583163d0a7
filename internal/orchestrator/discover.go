package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mdflow/mdflow/internal/mdflowerr"
)

// ResolveFile implements §4.12 step 2 / §6's project agent discovery for
// local paths: a name containing a path separator is tried as-given
// (relative to cwd); a bare filename is searched, in order, at cwd,
// cwd/.mdflow, home/.mdflow, then every PATH entry.
func ResolveFile(nameOrPath, cwd, home string) (string, error) {
	if strings.Contains(nameOrPath, "/") {
		candidate := nameOrPath
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(cwd, candidate)
		}
		if fileExists(candidate) {
			return candidate, nil
		}
		return "", mdflowerr.New(mdflowerr.KindFileNotFound, nameOrPath)
	}

	candidates := []string{
		filepath.Join(cwd, nameOrPath),
		filepath.Join(cwd, ".mdflow", nameOrPath),
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".mdflow", nameOrPath))
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, nameOrPath))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", mdflowerr.New(mdflowerr.KindFileNotFound, nameOrPath)
}

// IsRemoteURL reports whether nameOrPath names an http(s) agent file.
// Fetching and caching remote agent files is handled outside this build.
func IsRemoteURL(nameOrPath string) bool {
	return strings.HasPrefix(nameOrPath, "http://") || strings.HasPrefix(nameOrPath, "https://")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
