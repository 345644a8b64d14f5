package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath returns $XDG_CONFIG_HOME/learnhub/session.json, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfigHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgConfigHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(xdgConfigHome, "learnhub", "session.json")
}

func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
