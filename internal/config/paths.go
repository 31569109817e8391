package config

import (
	"os"
	"path/filepath"
)

// storeDirName is the directory name the system creates inside a project
// root to hold its database, config, and logs (spec §6.1). A leading-dot
// variant is also recognised when already present on disk.
const storeDirName = "kuzu-memory"
const hiddenStoreDirName = ".kuzu-memory"

// StoreDir returns <projectRoot>/kuzu-memory, or <projectRoot>/.kuzu-memory
// if that is the variant already present on disk.
func StoreDir(projectRoot string) string {
	hidden := filepath.Join(projectRoot, hiddenStoreDirName)
	if info, err := os.Stat(hidden); err == nil && info.IsDir() {
		return hidden
	}
	return filepath.Join(projectRoot, storeDirName)
}

// FindProjectRoot walks upward from startDir looking for a .git directory,
// returning the first ancestor (inclusive of startDir) that contains one.
// If none is found, startDir itself is returned so the system degrades to
// a per-directory store rather than failing outright.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// EnsureLayout creates the on-disk directories config.yaml and the database
// expect to exist (kuzu-memory/ and kuzu-memory/logs/).
func EnsureLayout(projectRoot string) error {
	dir := StoreDir(projectRoot)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(dir, "logs"), 0o700)
}
