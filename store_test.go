package photobooth

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"photobooth/capture"
	"photobooth/config"
)

func TestStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos")
	store, err := NewStore(dir)
	require.NoError(t, err)

	taken := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	meta := PictureMeta{Taken: taken, Mode: capture.ModeHostOperated, Camera: 1, Rotation: 270, Reflection: true}
	path, err := store.Save("2024.05.01_12.30.00", []byte("jpeg"), meta)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024.05.01_12.30.00.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	sidecar, err := os.ReadFile(filepath.Join(dir, "2024.05.01_12.30.00.yaml"))
	require.NoError(t, err)
	var got PictureMeta
	require.NoError(t, yaml.Unmarshal(sidecar, &got))
	assert.True(t, taken.Equal(got.Taken))
	got.Taken = meta.Taken
	assert.Equal(t, meta, got)
	assert.Contains(t, string(sidecar), "mode: host-operated")
}

func TestStoreSameSecond(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save("2024.05.01_12.30.00", []byte("a"), PictureMeta{})
	require.NoError(t, err)
	second, err := store.Save("2024.05.01_12.30.00", []byte("b"), PictureMeta{})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "2024.05.01_12.30.00_2.jpg", filepath.Base(second))
	assert.FileExists(t, filepath.Join(filepath.Dir(second), "2024.05.01_12.30.00_2.yaml"))
}

func TestNewStoreFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err := NewStore(filepath.Join(file, "photos"))
	assert.ErrorContains(t, err, "create output dir")
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closeFn, err := NewLogger(dir, slog.LevelDebug)
	require.NoError(t, err)
	logger.Info("booth started", "cameras", 2)
	require.NoError(t, closeFn())

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "booth started")
	assert.Contains(t, string(data), "cameras=2")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestPlatformDevices(t *testing.T) {
	cfg := config.Default()
	cfg.Cameras = append(cfg.Cameras, config.CameraConfig{
		Device:      "/dev/video2",
		Facing:      capture.FacingBack,
		Orientation: 90,
		Format:      "jpeg",
		Buffers:     2,
		Timeout:     time.Second,
	})
	devices := platformDevices(cfg.Cameras)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/video0", devices[0].Path)
	assert.Equal(t, capture.FacingFront, devices[0].Facing)
	assert.Equal(t, "/dev/video2", devices[1].Path)
	assert.Equal(t, 90, devices[1].Orientation)
	assert.Equal(t, uint32(2), devices[1].Buffers)
	assert.Equal(t, time.Second, devices[1].Timeout)
}
