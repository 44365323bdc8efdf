// Package docker wraps the Docker SDK with the high-level operations the
// conduit manager needs: lifecycle control of the managed container, log and
// stats collection, and file transfer in and out of the data volume.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
)

const (
	defaultTimeout = 5 * time.Second
	statsTimeout   = 2 * time.Second
	deployTimeout  = 3 * time.Minute
	stopGrace      = 10
)

// Client wraps the Docker SDK client with helpers consumed by the UI and CLI
// layers.
type Client struct {
	cli *client.Client
}

// ContainerState is the engine's view of the managed container. The daemon
// is the single source of truth; nothing here is cached between calls.
type ContainerState struct {
	Exists    bool
	Running   bool
	ID        string
	Image     string
	Status    string
	StartedAt time.Time
	Uptime    string
}

// ResourceStats holds one stats sample with raw byte counts retained so
// callers can format or threshold them.
type ResourceStats struct {
	CPUPercent float64
	MemUsage   uint64
	MemLimit   uint64
	MemPercent float64
	RxBytes    uint64
	TxBytes    uint64
}

// NewClient creates a new Docker client using environment variables.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

func timeoutCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Ping reports whether the Docker daemon is reachable.
func (c *Client) Ping() error {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()
	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// State inspects the named container and reduces the result to the two
// booleans the deployment decision runs on, plus display fields.
func (c *Client) State(name string) (ContainerState, error) {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, name)
	if client.IsErrNotFound(err) {
		return ContainerState{}, nil
	}
	if err != nil {
		return ContainerState{}, fmt.Errorf("inspect container %s: %w", name, err)
	}

	state := ContainerState{
		Exists: true,
		ID:     shortID(inspect.ID),
		Image:  inspect.Config.Image,
	}
	if inspect.State != nil {
		state.Running = inspect.State.Running
		state.Status = inspect.State.Status
		if started, err := time.Parse(time.RFC3339Nano, inspect.State.StartedAt); err == nil && state.Running {
			state.StartedAt = started
			state.Uptime = formatRelativeDuration(time.Since(started))
		}
	}
	return state, nil
}

func (c *Client) StartContainer(name string) error {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()
	if err := c.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", name, err)
	}
	return nil
}

func (c *Client) StopContainer(name string) error {
	ctx, cancel := timeoutCtx(defaultTimeout + stopGrace*time.Second)
	defer cancel()
	timeout := stopGrace
	if err := c.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s: %w", name, err)
	}
	return nil
}

func (c *Client) RestartContainer(name string) error {
	ctx, cancel := timeoutCtx(defaultTimeout + stopGrace*time.Second)
	defer cancel()
	timeout := stopGrace
	if err := c.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("restart container %s: %w", name, err)
	}
	return nil
}

func (c *Client) RemoveContainer(name string) error {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()
	if err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

// Logs returns the demultiplexed tail of the container's output. The conduit
// container runs without a TTY, so stdout and stderr arrive on the
// multiplexed stream and are merged here.
func (c *Client) Logs(name, tail string) (string, error) {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()

	out, err := c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
		Timestamps: false,
	})
	if err != nil {
		return "", fmt.Errorf("fetch logs for %s: %w", name, err)
	}
	defer out.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, out); err != nil {
		return "", fmt.Errorf("read logs for %s: %w", name, err)
	}
	return buf.String(), nil
}

// Stats takes a single non-streaming stats sample from the container.
func (c *Client) Stats(name string) (ResourceStats, error) {
	ctx, cancel := timeoutCtx(statsTimeout)
	defer cancel()

	resp, err := c.cli.ContainerStats(ctx, name, false)
	if err != nil {
		return ResourceStats{}, fmt.Errorf("fetch stats for %s: %w", name, err)
	}
	defer resp.Body.Close()

	var payload container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ResourceStats{}, fmt.Errorf("decode stats for %s: %w", name, err)
	}

	cpuDelta := float64(payload.CPUStats.CPUUsage.TotalUsage - payload.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(payload.CPUStats.SystemUsage - payload.PreCPUStats.SystemUsage)
	onlineCPUs := float64(payload.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 && len(payload.CPUStats.CPUUsage.PercpuUsage) > 0 {
		onlineCPUs = float64(len(payload.CPUStats.CPUUsage.PercpuUsage))
	}

	stats := ResourceStats{
		MemUsage: payload.MemoryStats.Usage,
		MemLimit: payload.MemoryStats.Limit,
	}
	if cpuDelta > 0 && systemDelta > 0 && onlineCPUs > 0 {
		stats.CPUPercent = (cpuDelta / systemDelta) * onlineCPUs * 100.0
	}
	if stats.MemLimit > 0 {
		stats.MemPercent = float64(stats.MemUsage) / float64(stats.MemLimit) * 100.0
	}
	for _, netStats := range payload.Networks {
		stats.RxBytes += netStats.RxBytes
		stats.TxBytes += netStats.TxBytes
	}
	return stats, nil
}

// Describe returns the raw inspect document as indented JSON.
func (c *Client) Describe(name string) (string, error) {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()

	data, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		return "", fmt.Errorf("inspect container %s: %w", name, err)
	}
	return formatAsJSON(data)
}

// CPULabel renders the CPU usage for display.
func (s ResourceStats) CPULabel() string {
	return fmt.Sprintf("%.2f%%", s.CPUPercent)
}

// MemLabel renders memory usage against the limit for display.
func (s ResourceStats) MemLabel() string {
	if s.MemLimit == 0 {
		return "-"
	}
	return fmt.Sprintf("%s / %s (%.1f%%)",
		units.BytesSize(float64(s.MemUsage)), units.BytesSize(float64(s.MemLimit)), s.MemPercent)
}

// NetLabel renders cumulative network I/O for display.
func (s ResourceStats) NetLabel() string {
	return fmt.Sprintf("%s / %s",
		units.HumanSize(float64(s.RxBytes)), units.HumanSize(float64(s.TxBytes)))
}

func formatAsJSON(v interface{}) (string, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func shortID(id string) string {
	const prefix = "sha256:"
	if strings.HasPrefix(id, prefix) {
		id = id[len(prefix):]
	}
	if len(id) >= 12 {
		return id[:12]
	}
	return id
}

func formatRelativeDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}

	unitTable := []struct {
		dur   time.Duration
		label string
	}{
		{time.Hour * 24 * 365, "y"},
		{time.Hour * 24 * 30, "mo"},
		{time.Hour * 24 * 7, "w"},
		{time.Hour * 24, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
	}

	for _, unit := range unitTable {
		if d >= unit.dur {
			value := d / unit.dur
			return fmt.Sprintf("%d%s", value, unit.label)
		}
	}

	return "just now"
}
