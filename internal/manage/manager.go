// Package manage ties the config, docker and backup layers into the
// operations the CLI and dashboard expose: deployment with state detection,
// lifecycle control, stats collection and node identity lookups.
package manage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"conduit-manager/internal/backup"
	"conduit-manager/internal/conduit"
	"conduit-manager/internal/config"
	"conduit-manager/internal/docker"
	"conduit-manager/internal/seccomp"
)

// statsTail bounds how much log output is scanned for the newest stats line.
const statsTail = "200"

// Manager executes conduit operations against one named container. It keeps
// no container state of its own; every operation re-reads the engine.
type Manager struct {
	docker  *docker.Client
	cfgPath string
	log     *slog.Logger

	// cfg is read from the UI poll goroutine while settings are saved on
	// the event loop.
	mu  sync.RWMutex
	cfg config.Config
}

// New builds a Manager. cfgPath is where settings are persisted and where
// the seccomp profile is materialized next to.
func New(dockerClient *docker.Client, cfg config.Config, cfgPath string, logger *slog.Logger) *Manager {
	return &Manager{
		docker:  dockerClient,
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     logger,
	}
}

// Config returns a copy of the active configuration.
func (m *Manager) Config() config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// UpdateSettings validates, persists and adopts new settings. The running
// container keeps its old settings until the next deploy.
func (m *Manager) UpdateSettings(s conduit.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	cfg := m.Config()
	cfg.Settings = s
	if err := config.Save(m.cfgPath, cfg); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.log.Info("settings saved",
		"max_clients", s.MaxClients, "bandwidth", s.BandwidthLabel(),
		"memory", s.MemoryLimit, "cpu", s.CPULimit)
	return nil
}

// State returns the engine's current view of the managed container.
func (m *Manager) State() (docker.ContainerState, error) {
	return m.docker.State(m.containerName())
}

// Deploy inspects the container and performs the action its state calls
// for: install a fresh container, start a stopped one, or recreate a
// running one so changed settings take effect. It returns the action taken.
func (m *Manager) Deploy() (conduit.Action, error) {
	state, err := m.State()
	if err != nil {
		return "", err
	}

	action := conduit.DecideDeployAction(state.Exists, state.Running)
	m.log.Info("deploy requested", "action", string(action), "container", m.containerName())

	switch action {
	case conduit.ActionStart:
		if err := m.docker.StartContainer(m.containerName()); err != nil {
			return action, err
		}
	case conduit.ActionRestart:
		// Settings only apply at create time, so a running container is
		// recreated rather than restarted in place.
		if err := m.docker.StopContainer(m.containerName()); err != nil {
			return action, err
		}
		if err := m.docker.RemoveContainer(m.containerName()); err != nil {
			return action, err
		}
		if err := m.install(); err != nil {
			return action, err
		}
	case conduit.ActionInstall:
		if err := m.install(); err != nil {
			return action, err
		}
	}
	return action, nil
}

func (m *Manager) install() error {
	cfg := m.Config()

	profilePath, err := seccomp.Install(filepath.Dir(m.cfgPath))
	if err != nil {
		return err
	}

	memBytes, err := cfg.Settings.MemoryBytes()
	if err != nil {
		return err
	}

	return m.docker.Deploy(docker.DeploySpec{
		Name:          cfg.ContainerName,
		Image:         cfg.Image,
		VolumeName:    cfg.VolumeName,
		SeccompPath:   profilePath,
		MaxClients:    cfg.Settings.MaxClients,
		BandwidthMbps: cfg.Settings.BandwidthMbps,
		MemoryBytes:   memBytes,
		NanoCPUs:      cfg.Settings.NanoCPUs(),
	})
}

func (m *Manager) containerName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.ContainerName
}

func (m *Manager) volumeName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.VolumeName
}

// Start starts the existing container.
func (m *Manager) Start() error {
	return m.docker.StartContainer(m.containerName())
}

// Stop stops the running container.
func (m *Manager) Stop() error {
	return m.docker.StopContainer(m.containerName())
}

// Restart restarts the container in place, keeping its current settings.
func (m *Manager) Restart() error {
	return m.docker.RestartContainer(m.containerName())
}

// Remove removes the container. The data volume and the node key survive.
func (m *Manager) Remove() error {
	return m.docker.RemoveContainer(m.containerName())
}

// Logs returns the container log tail.
func (m *Manager) Logs(tail string) (string, error) {
	return m.docker.Logs(m.containerName(), tail)
}

// Stats samples simple resource usage from the engine.
func (m *Manager) Stats() (docker.ResourceStats, error) {
	return m.docker.Stats(m.containerName())
}

// ProxyStats scrapes the newest stats line from the container log tail. The
// second return value is false when no stats line was found.
func (m *Manager) ProxyStats() (conduit.ProxyStats, bool, error) {
	logText, err := m.docker.Logs(m.containerName(), statsTail)
	if err != nil {
		return conduit.ProxyStats{}, false, err
	}
	stats, ok := conduit.LatestProxyStats(logText)
	return stats, ok, nil
}

// NodeID reads the identity key from the data volume and derives the
// display node ID.
func (m *Manager) NodeID() (string, error) {
	raw, err := m.docker.ReadVolumeFile(m.volumeName(), conduit.KeyFileName)
	if err != nil {
		return "", fmt.Errorf("read node key: %w", err)
	}
	return conduit.NodeID(raw)
}

// Describe returns the raw inspect document for the container.
func (m *Manager) Describe() (string, error) {
	return m.docker.Describe(m.containerName())
}

// Backups returns a backup manager bound to the configured data volume.
func (m *Manager) Backups(dir string) (*backup.Manager, error) {
	return backup.New(m.docker, m.volumeName(), dir)
}

// Ping reports whether the Docker daemon is reachable.
func (m *Manager) Ping() error {
	return m.docker.Ping()
}
