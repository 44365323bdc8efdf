// Package cli defines the command tree. The bare command launches the
// dashboard; subcommands expose every operation non-interactively for
// scripting.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coder/serpent"

	"conduit-manager/internal/config"
	"conduit-manager/internal/docker"
	"conduit-manager/internal/manage"
	"conduit-manager/internal/ui"
	"conduit-manager/internal/update"
)

// Config holds the flags shared by every command.
type Config struct {
	ConfigPath string
	LogLevel   string
}

// NewCommand creates and returns the root serpent command.
func NewCommand(version string) *serpent.Command {
	var cfg Config

	root := &serpent.Command{
		Use:   "conduit-manager [subcommand]",
		Short: "Manage a hardened Psiphon Conduit proxy container",
		Long: `conduit-manager deploys and supervises a single Conduit proxy node
running in a locked-down Docker container: seccomp profile, dropped
capabilities, read-only rootfs and resource limits.

Run without a subcommand to open the live dashboard.

Examples:
  # Open the dashboard
  conduit-manager

  # Deploy (install, start or reconfigure based on current state)
  conduit-manager deploy

  # Back up the node identity key
  conduit-manager backup

  # Restore a key and pick it up with a fresh deploy
  conduit-manager restore ~/.local/share/conduit-manager/backups/conduit_key_20250101T000000Z.json
  conduit-manager deploy`,
		Options: serpent.OptionSet{
			{
				Name:        "config",
				Flag:        "config",
				Env:         "CONDUIT_MANAGER_CONFIG",
				Description: "Path to the config file.",
				Value:       serpent.StringOf(&cfg.ConfigPath),
			},
			{
				Name:        "log-level",
				Flag:        "log-level",
				Env:         "CONDUIT_MANAGER_LOG_LEVEL",
				Description: "Set log level (error, warn, info, debug). Overrides the config file.",
				Value:       serpent.StringOf(&cfg.LogLevel),
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			return runDashboard(cfg, version)
		},
	}

	root.Children = subcommands(&cfg, version)
	return root
}

// runDashboard wires the full stack and blocks in the tview event loop.
// Manager logs go to a file since the TUI owns the terminal.
func runDashboard(cfg Config, version string) error {
	appCfg, cfgPath, err := loadConfig(cfg)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(appCfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := newLogger(effectiveLevel(cfg, appCfg), logFile)

	dockerClient, err := docker.NewClient()
	if err != nil {
		return err
	}
	if err := dockerClient.Ping(); err != nil {
		return err
	}

	manager := manage.New(dockerClient, appCfg, cfgPath, logger)
	checker := update.NewChecker(version, "")

	logger.Info("dashboard starting", "version", version, "container", appCfg.ContainerName)

	dashboard := ui.New(manager, checker, logger)
	dashboard.Initialize()
	return dashboard.Run()
}

// newManager wires the stack for a non-interactive subcommand; logs go to
// stderr.
func newManager(cfg Config, stderr io.Writer) (*manage.Manager, error) {
	appCfg, cfgPath, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(effectiveLevel(cfg, appCfg), stderr)

	dockerClient, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	if err := dockerClient.Ping(); err != nil {
		return nil, err
	}

	return manage.New(dockerClient, appCfg, cfgPath, logger), nil
}

func loadConfig(cfg Config) (config.Config, string, error) {
	path, err := config.Path(cfg.ConfigPath)
	if err != nil {
		return config.Config{}, "", err
	}
	appCfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	return appCfg, path, nil
}

func effectiveLevel(cfg Config, appCfg config.Config) string {
	if cfg.LogLevel != "" {
		return cfg.LogLevel
	}
	return appCfg.LogLevel
}

// newLogger creates a slog logger with the specified level.
func newLogger(logLevel string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// openLogFile opens the manager log for appending, defaulting to the XDG
// state directory.
func openLogFile(path string) (*os.File, error) {
	if path == "" {
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home directory: %w", err)
			}
			base = filepath.Join(home, ".local", "state")
		}
		path = filepath.Join(base, "conduit-manager", "manager.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
