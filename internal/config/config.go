// Package config loads the YAML configuration shared by the CLI and the
// server.
package config

import (
	"fmt"
	"os"
	"time"

	"cell-counter/internal/cells"
	"cell-counter/internal/counter"
	"cell-counter/internal/logging"
	"cell-counter/internal/rig"
	"cell-counter/internal/roi"
	"cell-counter/internal/storage"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the root of config.yaml.
type Config struct {
	Server    Server         `yaml:"server"`
	Logging   logging.Config `yaml:"logging"`
	Storage   Storage        `yaml:"storage"`
	Detection Detection      `yaml:"detection"`
	Rig       Rig            `yaml:"rig"`
}

// Server configures the HTTP counting service.
type Server struct {
	Address        string        `yaml:"address"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queueSize"`
	MaxUploadMB    int64         `yaml:"maxUploadMB"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`
}

// Storage configures where captures are written.
type Storage struct {
	MediaRoot string `yaml:"mediaRoot"`
	OutputDir string `yaml:"outputDir"` // overrides device lookup when set
}

// Detection carries the pipeline calibration.
type Detection struct {
	InnerMargin int          `yaml:"innerMargin"`
	ROI         roi.Params   `yaml:"roi"`
	Cells       cells.Params `yaml:"cells"`
}

// Rig describes the capture hardware.
type Rig struct {
	CameraResolution  int      `yaml:"cameraResolution"`
	DisplayResolution int      `yaml:"displayResolution"`
	Mode              rig.Mode `yaml:"mode"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Address:        ":8080",
			Workers:        2,
			QueueSize:      4,
			MaxUploadMB:    64,
			RequestTimeout: 60 * time.Second,
			ShutdownGrace:  10 * time.Second,
		},
		Logging: logging.Config{Level: "info"},
		Storage: Storage{MediaRoot: storage.DefaultMediaRoot},
		Detection: Detection{
			InnerMargin: counter.DefaultInnerMargin,
			ROI:         roi.DefaultParams(),
			Cells:       cells.DefaultParams(),
		},
		Rig: Rig{
			CameraResolution:  rig.CameraResolution,
			DisplayResolution: rig.DisplayResolution,
			Mode:              rig.Color,
		},
	}
}

// Load reads path over the defaults and validates the result. Keys absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	s := c.Server
	check(s.Address != "", "server.address is empty")
	check(s.Workers > 0, "server.workers must be positive, got %d", s.Workers)
	check(s.QueueSize >= 0, "server.queueSize must not be negative, got %d", s.QueueSize)
	check(s.MaxUploadMB > 0, "server.maxUploadMB must be positive, got %d", s.MaxUploadMB)

	d := c.Detection
	check(d.InnerMargin >= 0, "detection.innerMargin must not be negative, got %d", d.InnerMargin)

	r := d.ROI
	check(r.DownsampleFactor >= 1, "detection.roi.downsampleFactor must be at least 1, got %d", r.DownsampleFactor)
	check(r.CannySigma > 0, "detection.roi.cannySigma must be positive")
	check(r.CannyLow <= r.CannyHigh, "detection.roi.cannyLow (%g) exceeds cannyHigh (%g)", r.CannyLow, r.CannyHigh)
	check(r.MinRadiusRatio > 0 && r.MinRadiusRatio < r.MaxRadiusRatio,
		"detection.roi radius band [%g, %g) is empty", r.MinRadiusRatio, r.MaxRadiusRatio)

	p := d.Cells
	check(p.DistanceSigma > 0 && p.IntensitySigma > 0, "detection.cells sigmas must be positive")
	check(p.MinPeakDistance >= 1, "detection.cells.minPeakDistance must be at least 1, got %d", p.MinPeakDistance)
	check(p.MaxAxisRatio > 0, "detection.cells.maxAxisRatio must be positive")
	check(p.MinArea < p.MaxArea, "detection.cells area range (%d, %d) is empty", p.MinArea, p.MaxArea)

	check(c.Rig.CameraResolution > 0, "rig.cameraResolution must be positive")
	check(c.Rig.DisplayResolution > 0, "rig.displayResolution must be positive")
	return err
}

// NewCounter builds a counter from the detection section.
func (c Config) NewCounter(log *zap.Logger) *counter.Counter {
	ct := counter.New(log)
	ct.ROI = c.Detection.ROI
	ct.Cells = c.Detection.Cells
	ct.InnerMargin = c.Detection.InnerMargin
	ct.Resolution = c.Rig.CameraResolution
	return ct
}
