// Package xdg resolves XDG Base Directory paths for cortexq.
// Directories are created on demand with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "cortexq"

// ConfigDir returns $XDG_CONFIG_HOME/cortexq, falling back to ~/.config/cortexq.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/cortexq, falling back to ~/.local/state/cortexq.
// Batch reports are written here when no output path is given.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeRel string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
