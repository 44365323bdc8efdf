package docker

import (
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
)

// DataMountPath is where the conduit workload expects its data volume.
const DataMountPath = "/home/conduit/data"

// DeploySpec carries everything needed to create the hardened container.
type DeploySpec struct {
	Name          string
	Image         string
	VolumeName    string
	SeccompPath   string
	MaxClients    int
	BandwidthMbps int // -1 disables the limit
	MemoryBytes   int64
	NanoCPUs      int64
}

// Deploy pulls the image and creates and starts the container under the
// fixed hardening profile. A container created but failing to start is
// removed again so a failed deploy leaves no half-state behind.
func (c *Client) Deploy(spec DeploySpec) error {
	ctx, cancel := timeoutCtx(deployTimeout)
	defer cancel()

	if err := c.ensureVolume(spec.VolumeName); err != nil {
		return err
	}

	reader, err := c.cli.ImagePull(ctx, spec.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", spec.Image, err)
	}
	// Drain the progress stream; the pull only completes once it is consumed.
	io.Copy(io.Discard, reader)
	reader.Close()

	env := []string{
		fmt.Sprintf("CONDUIT_MAX_CLIENTS=%d", spec.MaxClients),
	}
	if spec.BandwidthMbps > 0 {
		env = append(env, fmt.Sprintf("CONDUIT_BANDWIDTH_MBPS=%d", spec.BandwidthMbps))
	}

	hostConfig := &container.HostConfig{
		SecurityOpt: []string{
			"no-new-privileges:true",
			"seccomp=" + spec.SeccompPath,
		},
		CapDrop:        []string{"ALL"},
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=64m",
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Resources: container.Resources{
			Memory:     spec.MemoryBytes,
			MemorySwap: spec.MemoryBytes,
			NanoCPUs:   spec.NanoCPUs,
		},
		LogConfig: container.LogConfig{
			Type: "json-file",
			Config: map[string]string{
				"max-size": "10m",
				"max-file": "3",
			},
		},
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeVolume,
				Source: spec.VolumeName,
				Target: DataMountPath,
			},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Env:   env,
	}, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return fmt.Errorf("create container %s: %w", spec.Name, err)
	}

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Roll the create back so a retry starts clean.
		c.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("start container %s: %w", spec.Name, err)
	}
	return nil
}

// ensureVolume creates the named data volume; creating an existing volume is
// a no-op on the engine side.
func (c *Client) ensureVolume(name string) error {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()
	if _, err := c.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return fmt.Errorf("create volume %s: %w", name, err)
	}
	return nil
}
