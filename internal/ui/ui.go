// Package ui renders the conduit dashboard: a live status and stats panel,
// the container log tail, and single-key actions for the lifecycle and
// backup operations.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"conduit-manager/internal/conduit"
	"conduit-manager/internal/docker"
	"conduit-manager/internal/filter"
	"conduit-manager/internal/logs"
	"conduit-manager/internal/manage"
	"conduit-manager/internal/update"
)

const (
	refreshInterval = 2 * time.Second
	logTail         = "200"

	dashboardStatusText = "[yellow]d[white]:deploy [yellow]s[white]:start [yellow]x[white]:stop [yellow]r[white]:restart [yellow]b[white]:backup [yellow]i[white]:inspect [yellow]e[white]:settings [yellow]u[white]:update [yellow]/[white]:search [yellow]q[white]:quit"
	detailStatusText    = "[yellow]ESC/q[white]:back [yellow]↑↓[white]:scroll"
	settingsStatusText  = "[yellow]Tab[white]:next field [yellow]ESC[white]:cancel"
	filterStatusText    = "[yellow]Enter[white]:search [yellow]ESC[white]:cancel [yellow]Ctrl+U[white]:clear | free text, level=error or ~regex"

	dashboardTitle = " Conduit Node (conduit-manager) "
	statsTitle     = " Proxy Activity "
	logsTitle      = " Container Logs "
)

// UI manages the terminal interface and orchestrates conduit operations.
type UI struct {
	app          *tview.Application
	statusView   *tview.TextView
	statsView    *tview.TextView
	logView      *tview.TextView
	detailView   *tview.TextView
	settingsForm *tview.Form
	filterInput  *tview.InputField
	statusBar    *tview.TextView
	mainView     *tview.Flex

	manager *manage.Manager
	checker *update.Checker
	log     *slog.Logger

	viewMode   string
	filterMode bool
	filter     *filter.Filter
	lastLog    string

	// nodeID lives on the poll goroutine and travels to the renderer inside
	// snapshots; nodeIDStale lets action callbacks request a re-read.
	nodeID      string
	nodeIDStale atomic.Bool

	stop chan struct{}
	kick chan struct{}
}

// snapshot is one poll of everything the dashboard renders. Collection runs
// off the event loop; rendering happens inside QueueUpdateDraw.
type snapshot struct {
	state   docker.ContainerState
	stats   *docker.ResourceStats
	proxy   *conduit.ProxyStats
	nodeID  string
	logText string
	err     error
}

// New constructs a UI bound to the provided manager.
func New(manager *manage.Manager, checker *update.Checker, logger *slog.Logger) *UI {
	u := &UI{
		app:      tview.NewApplication(),
		manager:  manager,
		checker:  checker,
		log:      logger,
		viewMode: "dashboard",
		filter:   filter.New(),
		stop:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
	u.nodeIDStale.Store(true)
	return u
}

// Initialize configures primitive components and key bindings.
func (u *UI) Initialize() {
	tview.Styles.PrimitiveBackgroundColor = tcell.ColorBlack
	tview.Styles.ContrastBackgroundColor = tcell.ColorBlack
	tview.Styles.MoreContrastBackgroundColor = tcell.ColorBlack
	tview.Styles.BorderColor = tcell.ColorGray
	tview.Styles.TitleColor = tcell.ColorWhite
	tview.Styles.GraphicsColor = tcell.ColorGray

	u.statusView = tview.NewTextView().SetDynamicColors(true)
	u.statusView.SetTitle(dashboardTitle).SetBorder(true)

	u.statsView = tview.NewTextView().SetDynamicColors(true)
	u.statsView.SetTitle(statsTitle).SetBorder(true)

	u.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	u.logView.SetTitle(logsTitle).SetBorder(true)

	u.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			u.app.Draw()
		})
	u.detailView.SetTitle(" Inspect ").SetBorder(true)

	u.filterInput = tview.NewInputField().
		SetLabel("Search: ").
		SetFieldWidth(0).
		SetFieldBackgroundColor(tcell.ColorBlack).
		SetPlaceholder("free text, level=error or ~regex")
	u.filterInput.SetBorder(true).SetTitle(" Log Search ")

	u.statusBar = tview.NewTextView().SetDynamicColors(true)
	u.updateStatusBarText()

	u.setupKeyBindings()
}

func (u *UI) setupKeyBindings() {
	u.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if u.viewMode != "dashboard" || u.filterMode {
			return event
		}

		switch event.Rune() {
		case '/':
			u.showFilterInput()
			return nil
		case 'c':
			if !u.filter.IsEmpty() {
				u.clearFilter()
			}
			return nil
		case 'd':
			u.runAsyncAction("Deploy", func() error {
				action, err := u.manager.Deploy()
				if err != nil {
					return err
				}
				u.log.Info("deploy finished", "action", string(action))
				return nil
			})
			return nil
		case 's':
			u.runAsyncAction("Start", u.manager.Start)
			return nil
		case 'x':
			u.runAsyncAction("Stop", u.manager.Stop)
			return nil
		case 'r':
			u.runAsyncAction("Restart", u.manager.Restart)
			return nil
		case 'b':
			u.backupKey()
			return nil
		case 'i':
			u.showInspect()
			return nil
		case 'e':
			u.showSettings()
			return nil
		case 'u':
			u.checkForUpdate()
			return nil
		case 'q':
			u.app.Stop()
			return nil
		}
		return event
	})

	u.detailView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			u.switchToDashboard()
			return nil
		}
		return event
	})

	u.filterInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			u.applyFilter()
			return nil
		case tcell.KeyEscape:
			u.hideFilterInput()
			return nil
		case tcell.KeyCtrlU:
			u.filterInput.SetText("")
			return nil
		}
		return event
	})
}

func (u *UI) setStatusMessage(msg string) {
	u.statusBar.SetText(msg)
}

func (u *UI) updateStatusBarText() {
	switch {
	case u.viewMode == "detail":
		u.statusBar.SetText(detailStatusText)
	case u.viewMode == "settings":
		u.statusBar.SetText(settingsStatusText)
	case u.filterMode:
		u.statusBar.SetText(filterStatusText)
	case !u.filter.IsEmpty():
		u.statusBar.SetText(fmt.Sprintf("[green]Search: %s[white] | [yellow]c[white]:clear | %s", u.filter.String(), dashboardStatusText))
	default:
		u.statusBar.SetText(dashboardStatusText)
	}
}

func (u *UI) showFilterInput() {
	u.filterMode = true
	u.updateStatusBarText()

	if !u.filter.IsEmpty() {
		u.filterInput.SetText(u.filter.String())
	}

	u.rebuildDashboardLayout()
	u.app.SetFocus(u.filterInput)
}

func (u *UI) hideFilterInput() {
	u.filterMode = false
	u.updateStatusBarText()

	u.rebuildDashboardLayout()
	u.app.SetFocus(u.logView)
}

func (u *UI) applyFilter() {
	newFilter, err := filter.Parse(u.filterInput.GetText())
	if err != nil {
		u.statusBar.SetText(fmt.Sprintf("[red]Search error: %v", err))
		return
	}

	u.filter = newFilter
	u.hideFilterInput()
	u.renderLogs()
}

func (u *UI) clearFilter() {
	u.filter = filter.New()
	u.filterInput.SetText("")
	u.updateStatusBarText()
	u.renderLogs()
}

// runAsyncAction executes a blocking engine call off the event loop and
// reports the outcome in the status bar, then forces a refresh.
func (u *UI) runAsyncAction(actionLabel string, action func() error) {
	u.setStatusMessage(fmt.Sprintf("[yellow]%s...", actionLabel))
	go func() {
		err := action()
		u.app.QueueUpdateDraw(func() {
			if err != nil {
				u.log.Error("action failed", "action", actionLabel, "error", err)
				u.statusBar.SetText(fmt.Sprintf("[red]%s failed: %v", actionLabel, err))
				return
			}
			u.statusBar.SetText(fmt.Sprintf("[green]%s done[white] | %s", actionLabel, dashboardStatusText))
		})
		u.nodeIDStale.Store(true)
		u.requestRefresh()
	}()
}

func (u *UI) backupKey() {
	u.setStatusMessage("[yellow]Backing up node key...")
	go func() {
		var path string
		backups, err := u.manager.Backups("")
		if err == nil {
			path, err = backups.Create()
		}
		u.app.QueueUpdateDraw(func() {
			if err != nil {
				u.log.Error("backup failed", "error", err)
				u.statusBar.SetText(fmt.Sprintf("[red]Backup failed: %v", err))
				return
			}
			u.log.Info("key backed up", "path", path)
			u.statusBar.SetText(fmt.Sprintf("[green]Key backed up to %s", path))
		})
	}()
}

func (u *UI) checkForUpdate() {
	u.setStatusMessage("[yellow]Checking for updates...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		result, err := u.checker.Check(ctx)
		u.app.QueueUpdateDraw(func() {
			if err != nil {
				u.log.Warn("update check failed", "error", err)
				u.statusBar.SetText(fmt.Sprintf("[red]Update check failed: %v", err))
				return
			}
			if result.Available {
				u.statusBar.SetText(fmt.Sprintf("[yellow]Update available: %s (running %s)", result.Latest, result.Current))
				return
			}
			u.statusBar.SetText(fmt.Sprintf("[green]Up to date (%s)[white] | %s", result.Current, dashboardStatusText))
		})
	}()
}

func (u *UI) showInspect() {
	u.detailView.Clear()
	u.detailView.SetText("Loading...")

	go func() {
		content, err := u.manager.Describe()
		u.app.QueueUpdateDraw(func() {
			if err != nil {
				u.detailView.SetText(fmt.Sprintf("[red]Error: %v", err))
				return
			}
			u.detailView.SetText(content)
		})
	}()

	u.viewMode = "detail"
	u.updateStatusBarText()

	u.mainView.Clear()
	u.mainView.AddItem(u.detailView, 0, 1, true)
	u.mainView.AddItem(u.statusBar, 1, 0, false)

	u.app.SetFocus(u.detailView)
}

func (u *UI) showSettings() {
	settings := u.manager.Config().Settings

	u.settingsForm = tview.NewForm().
		AddInputField("Max clients", strconv.Itoa(settings.MaxClients), 8, tview.InputFieldInteger, nil).
		AddInputField("Bandwidth Mbps (-1 unlimited)", strconv.Itoa(settings.BandwidthMbps), 8, nil, nil).
		AddInputField("Memory limit", settings.MemoryLimit, 8, nil, nil).
		AddInputField("CPU limit", strconv.FormatFloat(settings.CPULimit, 'g', -1, 64), 8, tview.InputFieldFloat, nil)
	u.settingsForm.
		AddButton("Save", u.saveSettings).
		AddButton("Cancel", u.switchToDashboard)
	u.settingsForm.SetTitle(" Settings ").SetBorder(true)
	u.settingsForm.SetCancelFunc(u.switchToDashboard)

	u.viewMode = "settings"
	u.updateStatusBarText()

	u.mainView.Clear()
	u.mainView.AddItem(u.settingsForm, 0, 1, true)
	u.mainView.AddItem(u.statusBar, 1, 0, false)

	u.app.SetFocus(u.settingsForm)
}

// saveSettings validates the form. Invalid input keeps the form open with
// the violation in the status bar so the user can correct and retry.
func (u *UI) saveSettings() {
	settings, err := parseSettingsForm(
		u.formFieldText(0), u.formFieldText(1), u.formFieldText(2), u.formFieldText(3))
	if err != nil {
		u.setStatusMessage(fmt.Sprintf("[red]%v", err))
		return
	}
	if err := u.manager.UpdateSettings(settings); err != nil {
		u.setStatusMessage(fmt.Sprintf("[red]%v", err))
		return
	}

	u.switchToDashboard()
	u.setStatusMessage(fmt.Sprintf("[green]Settings saved[white] | press [yellow]d[white] to apply | %s", dashboardStatusText))
}

func (u *UI) formFieldText(index int) string {
	field, _ := u.settingsForm.GetFormItem(index).(*tview.InputField)
	if field == nil {
		return ""
	}
	return field.GetText()
}

// parseSettingsForm converts raw form input into validated settings.
func parseSettingsForm(maxClients, bandwidth, memory, cpu string) (conduit.Settings, error) {
	var s conduit.Settings

	mc, err := strconv.Atoi(maxClients)
	if err != nil {
		return s, fmt.Errorf("max clients must be a number, got %q", maxClients)
	}
	bw, err := strconv.Atoi(bandwidth)
	if err != nil {
		return s, fmt.Errorf("bandwidth must be a number, got %q", bandwidth)
	}
	cpuLimit, err := strconv.ParseFloat(cpu, 64)
	if err != nil {
		return s, fmt.Errorf("cpu limit must be a number, got %q", cpu)
	}

	s = conduit.Settings{
		MaxClients:    mc,
		BandwidthMbps: bw,
		MemoryLimit:   memory,
		CPULimit:      cpuLimit,
	}
	return s, s.Validate()
}

func (u *UI) switchToDashboard() {
	u.viewMode = "dashboard"
	u.updateStatusBarText()

	u.rebuildDashboardLayout()
	u.app.SetFocus(u.logView)
	u.requestRefresh()
}

func (u *UI) rebuildDashboardLayout() {
	u.mainView.Clear()
	top := tview.NewFlex().
		AddItem(u.statusView, 0, 1, false).
		AddItem(u.statsView, 0, 1, false)
	u.mainView.AddItem(top, 9, 0, false)
	u.mainView.AddItem(u.logView, 0, 1, false)
	if u.filterMode {
		u.mainView.AddItem(u.filterInput, 3, 0, true)
	}
	u.mainView.AddItem(u.statusBar, 1, 0, false)
}

// requestRefresh nudges the poll loop without blocking; a refresh already
// pending is good enough.
func (u *UI) requestRefresh() {
	select {
	case u.kick <- struct{}{}:
	default:
	}
}

// refreshLoop is the single poller: one collection completes before the
// next render, so engine calls never overlap.
func (u *UI) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		snap := u.collect()
		u.app.QueueUpdateDraw(func() {
			u.render(snap)
		})

		select {
		case <-u.stop:
			return
		case <-u.kick:
		case <-ticker.C:
		}
	}
}

func (u *UI) collect() snapshot {
	var snap snapshot

	snap.state, snap.err = u.manager.State()
	if snap.err != nil {
		return snap
	}

	if snap.state.Exists && u.nodeIDStale.Load() {
		if id, err := u.manager.NodeID(); err == nil {
			u.nodeID = id
		} else {
			u.log.Debug("node id not available yet", "error", err)
		}
		// The key appears on the workload's first run; retry only after the
		// next lifecycle action rather than on every poll.
		u.nodeIDStale.Store(false)
	}
	snap.nodeID = u.nodeID

	if !snap.state.Running {
		return snap
	}

	if stats, err := u.manager.Stats(); err == nil {
		snap.stats = &stats
	}

	logText, err := u.manager.Logs(logTail)
	if err == nil {
		snap.logText = logText
		if proxy, ok := conduit.LatestProxyStats(logText); ok {
			snap.proxy = &proxy
		}
	}

	return snap
}

func (u *UI) render(snap snapshot) {
	if snap.err != nil {
		u.statusView.SetText(fmt.Sprintf("[red]Error: %v", snap.err))
		u.statsView.SetText("")
		return
	}

	u.statusView.SetText(buildStatusText(snap.state, u.manager.Config().Settings, snap.nodeID))
	u.statsView.SetText(buildStatsText(snap.proxy, snap.stats))

	if snap.logText != "" {
		u.lastLog = snap.logText
		u.renderLogs()
	}
}

// renderLogs applies the active search filter to the cached log tail.
func (u *UI) renderLogs() {
	filtered := u.filter.Apply(u.lastLog)
	if strings.TrimSpace(filtered) == "" && !u.filter.IsEmpty() {
		u.logView.SetText("[gray](no matching lines)")
		return
	}
	u.logView.SetText(logs.Colorize(filtered))
	u.logView.ScrollToEnd()
}

// buildStatusText renders the left dashboard panel.
func buildStatusText(state docker.ContainerState, settings conduit.Settings, nodeID string) string {
	symbol := "[red]●[-] stopped"
	switch {
	case !state.Exists:
		symbol = "[gray]○[-] not installed"
	case state.Running:
		symbol = "[green]●[-] running"
	}

	uptime := "-"
	if state.Uptime != "" {
		uptime = state.Uptime
	}
	image := "-"
	if state.Image != "" {
		image = state.Image
	}
	if nodeID == "" {
		nodeID = "-"
	}

	return fmt.Sprintf(
		" Status:   %s\n Uptime:   %s\n Image:    [lightblue]%s[-]\n Node ID:  [aqua]%s[-]\n\n Max clients: %d\n Bandwidth:   %s",
		symbol, uptime, image, nodeID, settings.MaxClients, settings.BandwidthLabel())
}

// buildStatsText renders the right dashboard panel. Missing samples render
// as dashes rather than stale numbers.
func buildStatsText(proxy *conduit.ProxyStats, stats *docker.ResourceStats) string {
	connected, connecting := "-", "-"
	up, down := "-", "-"
	if proxy != nil {
		connected = strconv.Itoa(proxy.ConnectedClients)
		connecting = strconv.Itoa(proxy.ConnectingClients)
		up = proxy.UpLabel()
		down = proxy.DownLabel()
	}

	cpu, mem, netIO := "-", "-", "-"
	if stats != nil {
		cpu = stats.CPULabel()
		mem = stats.MemLabel()
		netIO = stats.NetLabel()
	}

	return fmt.Sprintf(
		" Connected:   [aqua]%s[-]\n Connecting:  %s\n Up:          %s\n Down:        %s\n\n CPU:     %s\n Memory:  %s\n Net I/O: %s",
		connected, connecting, up, down, cpu, mem, netIO)
}

// Run bootstraps the flex layout, starts the poll loop and runs the tview
// event loop until quit.
func (u *UI) Run() error {
	u.mainView = tview.NewFlex().SetDirection(tview.FlexRow)
	u.switchToDashboard()

	go u.refreshLoop()
	defer close(u.stop)

	if err := u.app.SetRoot(u.mainView, true).Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
