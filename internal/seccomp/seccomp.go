// Package seccomp ships the static syscall allow-list applied to the conduit
// container. The profile is embedded at build time and materialized to disk
// because the engine accepts security profiles by path only.
package seccomp

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed profile.json
var profile []byte

// FileName is the on-disk name of the installed profile.
const FileName = "seccomp.json"

// Install writes the embedded profile under dir and returns its path.
// An existing up-to-date copy is left untouched so the file's mtime stays
// meaningful; a drifted copy is overwritten.
func Install(dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, profile) {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create profile directory: %w", err)
	}
	if err := os.WriteFile(path, profile, 0o644); err != nil {
		return "", fmt.Errorf("write seccomp profile: %w", err)
	}
	return path, nil
}

// Profile returns the embedded profile bytes, mainly for tests and display.
func Profile() []byte {
	out := make([]byte, len(profile))
	copy(out, profile)
	return out
}
