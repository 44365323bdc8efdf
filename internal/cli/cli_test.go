package cli

import (
	"strings"
	"testing"

	"github.com/coder/serpent"
	"github.com/stretchr/testify/require"

	"conduit-manager/internal/config"
)

// mockPTY captures command output for assertions, a simplified version of
// coder/coder's ptytest.
type mockPTY struct {
	t      *testing.T
	stdout strings.Builder
	stderr strings.Builder
}

func newMockPTY(t *testing.T) *mockPTY {
	return &mockPTY{t: t}
}

func (m *mockPTY) attach(inv *serpent.Invocation) {
	inv.Stdout = &m.stdout
	inv.Stderr = &m.stderr
}

func (m *mockPTY) expectMatch(content string) {
	m.t.Helper()
	if !strings.Contains(m.stdout.String(), content) {
		m.t.Fatalf("expected %q, got: %s", content, m.stdout.String())
	}
}

func TestHelp(t *testing.T) {
	cmd := NewCommand("1.0.0")
	inv := cmd.Invoke("--help")

	pty := newMockPTY(t)
	pty.attach(inv)

	err := inv.Run()
	require.NoError(t, err)

	pty.expectMatch("Manage a hardened Psiphon Conduit proxy container")
	for _, sub := range []string{"deploy", "backup", "restore", "node-id", "check-update"} {
		pty.expectMatch(sub)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewCommand("1.2.3")
	inv := cmd.Invoke("version")

	pty := newMockPTY(t)
	pty.attach(inv)

	err := inv.Run()
	require.NoError(t, err)
	pty.expectMatch("1.2.3")
}

func TestRestoreRequiresArgument(t *testing.T) {
	cmd := NewCommand("1.0.0")
	inv := cmd.Invoke("restore")

	pty := newMockPTY(t)
	pty.attach(inv)

	err := inv.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "backup file")
}

func TestEffectiveLevel(t *testing.T) {
	t.Parallel()

	appCfg := config.Default()
	require.Equal(t, "debug", effectiveLevel(Config{LogLevel: "debug"}, appCfg))
	require.Equal(t, appCfg.LogLevel, effectiveLevel(Config{}, appCfg))
}
