package ui

import (
	"strings"
	"testing"

	"conduit-manager/internal/conduit"
	"conduit-manager/internal/docker"
)

func TestParseSettingsForm(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		got, err := parseSettingsForm("100", "-1", "512m", "1.5")
		if err != nil {
			t.Fatalf("parseSettingsForm() unexpected error: %v", err)
		}
		want := conduit.Settings{MaxClients: 100, BandwidthMbps: -1, MemoryLimit: "512m", CPULimit: 1.5}
		if got != want {
			t.Fatalf("parseSettingsForm() = %+v, want %+v", got, want)
		}
	})

	tests := []struct {
		name                            string
		maxClients, bandwidth, mem, cpu string
	}{
		{"nonNumericClients", "lots", "100", "512m", "1"},
		{"clientsOutOfRange", "5000", "100", "512m", "1"},
		{"unlimitedClientsRejected", "-1", "100", "512m", "1"},
		{"bandwidthOutOfRange", "100", "0", "512m", "1"},
		{"badMemory", "100", "100", "potato", "1"},
		{"zeroCPU", "100", "100", "512m", "0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseSettingsForm(tt.maxClients, tt.bandwidth, tt.mem, tt.cpu); err == nil {
				t.Fatalf("parseSettingsForm(%q,%q,%q,%q) expected error", tt.maxClients, tt.bandwidth, tt.mem, tt.cpu)
			}
		})
	}
}

func TestBuildStatusText(t *testing.T) {
	t.Parallel()

	settings := conduit.Settings{MaxClients: 250, BandwidthMbps: -1, MemoryLimit: "512m", CPULimit: 1}

	t.Run("notInstalled", func(t *testing.T) {
		t.Parallel()
		got := buildStatusText(docker.ContainerState{}, settings, "")
		if !strings.Contains(got, "not installed") {
			t.Fatalf("expected not-installed marker, got %q", got)
		}
		if !strings.Contains(got, "Node ID:  [aqua]-[-]") {
			t.Fatalf("expected dash for unknown node id, got %q", got)
		}
	})

	t.Run("running", func(t *testing.T) {
		t.Parallel()
		state := docker.ContainerState{Exists: true, Running: true, Image: "img:latest", Uptime: "3h"}
		got := buildStatusText(state, settings, "abc123")
		for _, want := range []string{"running", "3h", "img:latest", "abc123", "250", "unlimited"} {
			if !strings.Contains(got, want) {
				t.Fatalf("buildStatusText() missing %q in %q", want, got)
			}
		}
	})
}

func TestBuildStatsText(t *testing.T) {
	t.Parallel()

	t.Run("noSamples", func(t *testing.T) {
		t.Parallel()
		got := buildStatsText(nil, nil)
		if strings.Count(got, "-") < 6 {
			t.Fatalf("expected dashes for missing samples, got %q", got)
		}
	})

	t.Run("withSamples", func(t *testing.T) {
		t.Parallel()
		proxy := &conduit.ProxyStats{ConnectedClients: 12, ConnectingClients: 3, BytesUp: 1500000, BytesDown: 2500000}
		stats := &docker.ResourceStats{CPUPercent: 5}
		got := buildStatsText(proxy, stats)
		for _, want := range []string{"12", "3", "1.5MB", "2.5MB", "5.00%"} {
			if !strings.Contains(got, want) {
				t.Fatalf("buildStatsText() missing %q in %q", want, got)
			}
		}
	})
}
