package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// helperImage backs the throwaway container used to reach into named
// volumes. Files are moved via the engine's copy API, so the container is
// created but never started.
const helperImage = "alpine:3.20"

const volumeMount = "/data"

// ReadVolumeFile returns the contents of a single file stored in a named
// volume.
func (c *Client) ReadVolumeFile(volumeName, fileName string) ([]byte, error) {
	ctx, cancel := timeoutCtx(deployTimeout)
	defer cancel()

	helperID, err := c.createVolumeHelper(ctx, volumeName)
	if err != nil {
		return nil, err
	}
	defer c.removeHelper(helperID)

	reader, _, err := c.cli.CopyFromContainer(ctx, helperID, path.Join(volumeMount, fileName))
	if err != nil {
		return nil, fmt.Errorf("copy %s from volume %s: %w", fileName, volumeName, err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive from volume %s: %w", volumeName, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if path.Base(hdr.Name) != fileName {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s from archive: %w", fileName, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("file %s not found in volume %s", fileName, volumeName)
}

// WriteVolumeFile places a single file into a named volume, overwriting any
// existing copy.
func (c *Client) WriteVolumeFile(volumeName, fileName string, data []byte) error {
	ctx, cancel := timeoutCtx(deployTimeout)
	defer cancel()

	if err := c.ensureVolume(volumeName); err != nil {
		return err
	}

	helperID, err := c.createVolumeHelper(ctx, volumeName)
	if err != nil {
		return err
	}
	defer c.removeHelper(helperID)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    fileName,
		Mode:    0o600,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write archive body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	if err := c.cli.CopyToContainer(ctx, helperID, volumeMount, &buf, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy %s into volume %s: %w", fileName, volumeName, err)
	}
	return nil
}

func (c *Client) createVolumeHelper(ctx context.Context, volumeName string) (string, error) {
	if err := c.ensureHelperImage(ctx); err != nil {
		return "", err
	}

	resp, err := c.cli.ContainerCreate(ctx, &container.Config{
		Image: helperImage,
		Cmd:   []string{"true"},
	}, &container.HostConfig{
		Binds: []string{volumeName + ":" + volumeMount},
	}, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create volume helper: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) ensureHelperImage(ctx context.Context) error {
	_, _, err := c.cli.ImageInspectWithRaw(ctx, helperImage)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect helper image: %w", err)
	}

	reader, err := c.cli.ImagePull(ctx, helperImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull helper image %s: %w", helperImage, err)
	}
	io.Copy(io.Discard, reader)
	reader.Close()
	return nil
}

func (c *Client) removeHelper(id string) {
	ctx, cancel := timeoutCtx(defaultTimeout)
	defer cancel()
	c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
