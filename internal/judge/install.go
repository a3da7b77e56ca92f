package judge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// #region find-installation
// FindInstallation returns the first candidate directory that contains the
// entry-point file. Candidates may start with "~/".
func FindInstallation(candidates []string, entrypoint string) (string, error) {
	for _, c := range candidates {
		dir := ExpandHome(c)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		entry, err := os.Stat(filepath.Join(dir, entrypoint))
		if err != nil || entry.IsDir() {
			continue
		}
		return dir, nil
	}
	return "", fmt.Errorf("%w: looked for %s in %s", ErrNotInstalled, entrypoint, strings.Join(candidates, ", "))
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// #endregion find-installation
