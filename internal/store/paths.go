package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// GlobalDataPath returns the path to the global .oster directory.
// On Unix: ~/.oster
// On Windows: %USERPROFILE%\.oster
func GlobalDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".oster"), nil
}

// LocalDataPath returns the path to the local .oster directory
// for the given project root.
func LocalDataPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".oster")
}

// EnsureDataDir creates the given data directory if it doesn't exist.
// Returns nil if the directory already exists or was successfully created.
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}
