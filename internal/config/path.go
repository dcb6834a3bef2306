package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default directory for the embedded store.
// It prefers XDG and OS conventions and falls back to a dotdir in the
// user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "audiolog")
	}

	// macOS: ~/Library/Application Support/audiolog
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "audiolog")
	}

	// Windows: %USERPROFILE%/AppData/Local/audiolog
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "audiolog")
	}

	return filepath.Join(homeDir, ".audiolog")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
