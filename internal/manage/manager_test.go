package manage

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"conduit-manager/internal/conduit"
	"conduit-manager/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(nil, config.Default(), cfgPath, logger)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	want := conduit.Settings{MaxClients: 42, BandwidthMbps: 200, MemoryLimit: "1g", CPULimit: 2}
	if err := m.UpdateSettings(want); err != nil {
		t.Fatalf("UpdateSettings() unexpected error: %v", err)
	}

	if got := m.Config().Settings; got != want {
		t.Fatalf("Config().Settings = %+v, want %+v", got, want)
	}

	persisted, err := config.Load(m.cfgPath)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if persisted.Settings != want {
		t.Fatalf("persisted settings = %+v, want %+v", persisted.Settings, want)
	}
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	before := m.Config().Settings

	bad := conduit.Settings{MaxClients: 0, BandwidthMbps: 100, MemoryLimit: "512m", CPULimit: 1}
	if err := m.UpdateSettings(bad); err == nil {
		t.Fatal("UpdateSettings() expected validation error")
	}
	if got := m.Config().Settings; got != before {
		t.Fatalf("settings changed after rejected update: %+v", got)
	}
}
