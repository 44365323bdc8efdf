package conduit

// Action is the deployment step chosen from the observed container state.
type Action string

const (
	// ActionInstall creates and starts a fresh container.
	ActionInstall Action = "install"
	// ActionStart starts an existing stopped container.
	ActionStart Action = "start"
	// ActionRestart recreates a running container so new settings take effect.
	ActionRestart Action = "restart"
)

// DecideDeployAction maps the two state booleans reported by the engine onto
// the deployment action. The engine is the single source of truth; no state
// is cached between calls.
func DecideDeployAction(exists, running bool) Action {
	switch {
	case !exists:
		return ActionInstall
	case running:
		return ActionRestart
	default:
		return ActionStart
	}
}
