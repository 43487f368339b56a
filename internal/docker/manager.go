package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"spotload/internal/logger"
	"spotload/internal/transcode"
)

const (
	WorkDir         = "/work"
	ContainerPrefix = "spotload-ffmpeg-"
)

// Manager runs ffmpeg in a throwaway container with the track folder
// bind-mounted, for hosts without a local ffmpeg.
type Manager struct {
	client *client.Client
	image  string

	pullOnce sync.Once
	pullErr  error
}

func NewManager(imageName string) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Manager{client: cli, image: imageName}, nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) pullImage(ctx context.Context) error {
	m.pullOnce.Do(func() {
		logger.Info("Pulling Docker image %s", m.image)
		reader, err := m.client.ImagePull(ctx, m.image, image.PullOptions{})
		if err != nil {
			m.pullErr = fmt.Errorf("failed to pull image %s: %w", m.image, err)
			return
		}
		defer reader.Close()

		// Must read the response stream completely
		if _, err := io.Copy(io.Discard, reader); err != nil {
			m.pullErr = fmt.Errorf("failed to read pull response for %s: %w", m.image, err)
		}
	})
	return m.pullErr
}

// Convert implements transcode.Converter.
func (m *Manager) Convert(ctx context.Context, src, dst string) error {
	if err := m.pullImage(ctx); err != nil {
		return err
	}

	dir, err := filepath.Abs(filepath.Dir(src))
	if err != nil {
		return fmt.Errorf("failed to resolve folder of %s: %w", src, err)
	}
	if filepath.Dir(dst) != filepath.Dir(src) {
		return fmt.Errorf("output %s must be in the same folder as %s", dst, src)
	}

	config, hostConfig := containerSpec(m.image, dir, filepath.Base(src), filepath.Base(dst))
	name := ContainerPrefix + uuid.NewString()

	resp, err := m.client.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return fmt.Errorf("failed to create ffmpeg container: %w", err)
	}
	defer m.removeContainer(resp.ID)

	exitCode, err := m.run(ctx, resp.ID)
	logger.LogContainerRun(m.image, resp.ID, exitCode, err)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("ffmpeg container exited with status %d", exitCode)
	}
	return nil
}

func (m *Manager) run(ctx context.Context, containerID string) (int64, error) {
	if err := m.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return -1, fmt.Errorf("failed to start ffmpeg container: %w", err)
	}

	statusCh, errCh := m.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return -1, fmt.Errorf("failed waiting for ffmpeg container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, errors.New(status.Error.Message)
		}
		return status.StatusCode, nil
	}
}

// removeContainer uses its own context so cleanup still happens after cancellation.
func (m *Manager) removeContainer(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		logger.Warn("Failed to remove container %s: %v", containerID, err)
	}
}

func containerSpec(imageName, hostDir, srcName, dstName string) (*container.Config, *container.HostConfig) {
	config := &container.Config{
		Image:      imageName,
		Cmd:        transcode.FFmpegArgs(path.Join(WorkDir, srcName), path.Join(WorkDir, dstName)),
		WorkingDir: WorkDir,
	}
	// Keep converted files owned by the invoking user.
	if runtime.GOOS == "linux" {
		config.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}

	hostConfig := &container.HostConfig{
		Binds: []string{fmt.Sprintf("%s:%s", hostDir, WorkDir)},
	}
	return config, hostConfig
}
