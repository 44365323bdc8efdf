package app

import (
	"conduit-manager/internal/cli"
)

// Run parses the command line and dispatches: the bare command opens the
// dashboard, subcommands run one operation and exit.
func Run(version string) error {
	cmd := cli.NewCommand(version)
	return cmd.Invoke().WithOS().Run()
}
