// Package backup copies the node identity key out of and back into the
// conduit data volume. Backups are plain timestamped files; the key blob is
// never rewritten, only copied verbatim.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"conduit-manager/internal/conduit"
)

const (
	appDirName = "conduit-manager"
	filePrefix = "conduit_key_"
	fileSuffix = ".json"

	timestampLayout = "20060102T150405Z"
)

// VolumeStore is the slice of the docker client the backup manager needs.
type VolumeStore interface {
	ReadVolumeFile(volumeName, fileName string) ([]byte, error)
	WriteVolumeFile(volumeName, fileName string, data []byte) error
}

// Entry describes one backup file on disk, newest first in listings.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Manager creates, lists, restores and prunes key backups for one volume.
type Manager struct {
	store  VolumeStore
	volume string
	dir    string
}

// New builds a Manager writing under dir. An empty dir selects the default
// backup directory.
func New(store VolumeStore, volumeName, dir string) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return &Manager{store: store, volume: volumeName, dir: dir}, nil
}

// DefaultDir resolves $XDG_DATA_HOME/conduit-manager/backups with a
// ~/.local/share fallback.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appDirName, "backups"), nil
}

// Dir returns the backup directory in use.
func (m *Manager) Dir() string {
	return m.dir
}

// Create reads the key blob from the volume, verifies it parses and writes a
// timestamped copy. Returns the new file's path.
func (m *Manager) Create() (string, error) {
	raw, err := m.store.ReadVolumeFile(m.volume, conduit.KeyFileName)
	if err != nil {
		return "", fmt.Errorf("read key from volume %s: %w", m.volume, err)
	}
	if err := conduit.ValidateKeyBlob(raw); err != nil {
		return "", fmt.Errorf("refusing to back up unparsable key: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := filePrefix + time.Now().UTC().Format(timestampLayout) + fileSuffix
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("write backup %s: %w", path, err)
	}
	return path, nil
}

// List returns the backups on disk, newest first. A missing directory is an
// empty listing, not an error.
func (m *Manager) List() ([]Entry, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory %s: %w", m.dir, err)
	}

	var result []Entry
	for _, e := range entries {
		if e.IsDir() || !isBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		result = append(result, Entry{
			Path:    filepath.Join(m.dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name > result[j].Name
	})
	return result, nil
}

// Restore validates the backup file and copies it into the volume verbatim.
// The caller restarts the container afterwards so the workload picks the
// key up.
func (m *Manager) Restore(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", path, err)
	}
	if err := conduit.ValidateKeyBlob(raw); err != nil {
		return fmt.Errorf("backup %s: %w", path, err)
	}
	if err := m.store.WriteVolumeFile(m.volume, conduit.KeyFileName, raw); err != nil {
		return fmt.Errorf("write key into volume %s: %w", m.volume, err)
	}
	return nil
}

// Prune removes all but the newest keep backups and reports how many files
// were deleted.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}
	entries, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(entries) <= keep {
		return 0, nil
	}

	removed := 0
	for _, e := range entries[keep:] {
		if err := os.Remove(e.Path); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", e.Path, err)
		}
		removed++
	}
	return removed, nil
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
