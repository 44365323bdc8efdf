package cli

import (
	"fmt"

	"github.com/coder/serpent"
	"github.com/docker/go-units"

	"conduit-manager/internal/update"
)

func subcommands(cfg *Config, version string) []*serpent.Command {
	return []*serpent.Command{
		statusCmd(cfg),
		deployCmd(cfg),
		lifecycleCmd(cfg, "start", "Start the stopped conduit container", func(m lifecycleOps) error { return m.Start() }),
		lifecycleCmd(cfg, "stop", "Stop the running conduit container", func(m lifecycleOps) error { return m.Stop() }),
		lifecycleCmd(cfg, "restart", "Restart the conduit container in place", func(m lifecycleOps) error { return m.Restart() }),
		lifecycleCmd(cfg, "remove", "Remove the conduit container (the node key survives in its volume)", func(m lifecycleOps) error { return m.Remove() }),
		backupCmd(cfg),
		backupsCmd(cfg),
		restoreCmd(cfg),
		pruneCmd(cfg),
		nodeIDCmd(cfg),
		checkUpdateCmd(cfg, version),
		versionCmd(version),
	}
}

// lifecycleOps keeps the four single-call commands on one code path.
type lifecycleOps interface {
	Start() error
	Stop() error
	Restart() error
	Remove() error
}

func lifecycleCmd(cfg *Config, use, short string, op func(lifecycleOps) error) *serpent.Command {
	return &serpent.Command{
		Use:   use,
		Short: short,
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			if err := op(manager); err != nil {
				return err
			}
			fmt.Fprintf(inv.Stdout, "%s: ok\n", use)
			return nil
		},
	}
}

func statusCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "status",
		Short: "Print the container state, proxy stats and resource usage",
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}

			state, err := manager.State()
			if err != nil {
				return err
			}

			if !state.Exists {
				fmt.Fprintln(inv.Stdout, "state: not installed")
				return nil
			}

			fmt.Fprintf(inv.Stdout, "state: %s\n", state.Status)
			fmt.Fprintf(inv.Stdout, "id: %s\n", state.ID)
			fmt.Fprintf(inv.Stdout, "image: %s\n", state.Image)
			if state.Uptime != "" {
				fmt.Fprintf(inv.Stdout, "uptime: %s\n", state.Uptime)
			}

			if nodeID, err := manager.NodeID(); err == nil {
				fmt.Fprintf(inv.Stdout, "node_id: %s\n", nodeID)
			}

			if !state.Running {
				return nil
			}

			if proxy, ok, err := manager.ProxyStats(); err == nil && ok {
				fmt.Fprintf(inv.Stdout, "connected_clients: %d\n", proxy.ConnectedClients)
				fmt.Fprintf(inv.Stdout, "connecting_clients: %d\n", proxy.ConnectingClients)
				fmt.Fprintf(inv.Stdout, "bytes_up: %d\n", proxy.BytesUp)
				fmt.Fprintf(inv.Stdout, "bytes_down: %d\n", proxy.BytesDown)
			}

			if stats, err := manager.Stats(); err == nil {
				fmt.Fprintf(inv.Stdout, "cpu: %s\n", stats.CPULabel())
				fmt.Fprintf(inv.Stdout, "memory: %s\n", stats.MemLabel())
				fmt.Fprintf(inv.Stdout, "net_io: %s\n", stats.NetLabel())
			}
			return nil
		},
	}
}

func deployCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "deploy",
		Short: "Install, start or reconfigure the container based on its current state",
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			action, err := manager.Deploy()
			if err != nil {
				return err
			}
			fmt.Fprintf(inv.Stdout, "deploy: %s completed\n", action)
			return nil
		},
	}
}

func backupCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "backup",
		Short: "Back up the node identity key from the data volume",
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			backups, err := manager.Backups("")
			if err != nil {
				return err
			}
			path, err := backups.Create()
			if err != nil {
				return err
			}
			fmt.Fprintf(inv.Stdout, "backup written: %s\n", path)
			return nil
		},
	}
}

func backupsCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "backups",
		Short: "List key backups, newest first",
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			backups, err := manager.Backups("")
			if err != nil {
				return err
			}
			entries, err := backups.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(inv.Stdout, "no backups in %s\n", backups.Dir())
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(inv.Stdout, "%s\t%s\t%s\n",
					e.Name, units.HumanSize(float64(e.Size)), e.ModTime.UTC().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func restoreCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "restore <backup-file>",
		Short: "Restore a node identity key into the data volume",
		Handler: func(inv *serpent.Invocation) error {
			if len(inv.Args) != 1 {
				return fmt.Errorf("expected exactly one backup file argument")
			}
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			backups, err := manager.Backups("")
			if err != nil {
				return err
			}
			if err := backups.Restore(inv.Args[0]); err != nil {
				return err
			}
			fmt.Fprintln(inv.Stdout, "key restored; run 'conduit-manager deploy' to pick it up")
			return nil
		},
	}
}

func pruneCmd(cfg *Config) *serpent.Command {
	var keep int64 = 5
	return &serpent.Command{
		Use:   "prune",
		Short: "Delete all but the newest key backups",
		Options: serpent.OptionSet{
			{
				Name:        "keep",
				Flag:        "keep",
				Description: "Number of backups to keep.",
				Default:     "5",
				Value:       serpent.Int64Of(&keep),
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			backups, err := manager.Backups("")
			if err != nil {
				return err
			}
			removed, err := backups.Prune(int(keep))
			if err != nil {
				return err
			}
			fmt.Fprintf(inv.Stdout, "pruned %d backup(s)\n", removed)
			return nil
		},
	}
}

func nodeIDCmd(cfg *Config) *serpent.Command {
	return &serpent.Command{
		Use:   "node-id",
		Short: "Print the node's derived identity",
		Handler: func(inv *serpent.Invocation) error {
			manager, err := newManager(*cfg, inv.Stderr)
			if err != nil {
				return err
			}
			nodeID, err := manager.NodeID()
			if err != nil {
				return err
			}
			fmt.Fprintln(inv.Stdout, nodeID)
			return nil
		},
	}
}

func checkUpdateCmd(cfg *Config, version string) *serpent.Command {
	return &serpent.Command{
		Use:   "check-update",
		Short: "Check GitHub for a newer release",
		Handler: func(inv *serpent.Invocation) error {
			checker := update.NewChecker(version, "")
			result, err := checker.Check(inv.Context())
			if err != nil {
				return err
			}
			if result.Available {
				fmt.Fprintf(inv.Stdout, "update available: %s (running %s)\n", result.Latest, result.Current)
				return nil
			}
			fmt.Fprintf(inv.Stdout, "up to date (%s)\n", result.Current)
			return nil
		},
	}
}

func versionCmd(version string) *serpent.Command {
	return &serpent.Command{
		Use:   "version",
		Short: "Print the manager version",
		Handler: func(inv *serpent.Invocation) error {
			fmt.Fprintln(inv.Stdout, version)
			return nil
		},
	}
}
