package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cell-counter/internal/cells"
	"cell-counter/internal/rig"
	"cell-counter/internal/roi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, roi.DefaultParams(), cfg.Detection.ROI)
	assert.Equal(t, cells.DefaultParams(), cfg.Detection.Cells)
	assert.Equal(t, 50, cfg.Detection.InnerMargin)
	assert.Equal(t, 3040, cfg.Rig.CameraResolution)
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, `
server:
  address: "127.0.0.1:9000"
  workers: 4
  requestTimeout: 15s
logging:
  level: debug
detection:
  innerMargin: 80
  cells:
    minArea: 500
rig:
  mode: UV
  cameraResolution: 1520
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(64), cfg.Server.MaxUploadMB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 80, cfg.Detection.InnerMargin)
	assert.Equal(t, 500, cfg.Detection.Cells.MinArea)
	assert.Equal(t, 100000, cfg.Detection.Cells.MaxArea)
	assert.Equal(t, 150.0, cfg.Detection.Cells.ScoreThreshold)
	assert.Equal(t, roi.DefaultParams(), cfg.Detection.ROI)
	assert.Equal(t, rig.UV, cfg.Rig.Mode)

	ct := cfg.NewCounter(nil)
	assert.Equal(t, 80, ct.InnerMargin)
	assert.Equal(t, 500, ct.Cells.MinArea)
	assert.Equal(t, 1520, ct.Resolution)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		count int
	}{
		{"bad yaml", "server: [", 1},
		{"bad mode", "rig:\n  mode: infrared\n", 1},
		{"zero workers", "server:\n  workers: 0\n", 1},
		{"two problems", "detection:\n  innerMargin: -1\n  cells:\n    minArea: 10\n    maxArea: 5\n", 2},
		{"inverted band", "detection:\n  roi:\n    minRadiusRatio: 0.5\n    maxRadiusRatio: 0.4\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Len(t, multierr.Errors(err), tt.count)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
