// Package storage saves captures to removable media.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cell-counter/internal/imaging"
	"cell-counter/internal/rig"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// TimestampLayout names captures day_month_year_hour_minute_second.
const TimestampLayout = "02_01_2006_15_04_05"

// DefaultMediaRoot is where removable drives are mounted, one directory
// per user and then one per device.
const DefaultMediaRoot = "/media"

// ErrNoDevice is returned when no removable drive is mounted.
var ErrNoDevice = errors.New("no USB device found")

// FindDevice returns the first device directory under mediaRoot, i.e. the
// first <mediaRoot>/<user>/<device> in lexical order.
func FindDevice(mediaRoot string) (string, error) {
	users, err := subdirs(mediaRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDevice
		}
		return "", err
	}
	for _, user := range users {
		devices, err := subdirs(filepath.Join(mediaRoot, user))
		if err != nil {
			continue
		}
		if len(devices) > 0 {
			return filepath.Join(mediaRoot, user, devices[0]), nil
		}
	}
	return "", ErrNoDevice
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Store writes captures either to a fixed directory or to the first
// mounted removable drive.
type Store struct {
	// Dir, when set, is used instead of looking for a device.
	Dir       string
	MediaRoot string

	now func() time.Time
	log *zap.Logger
}

// New returns a Store. A nil logger discards output.
func New(dir, mediaRoot string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if mediaRoot == "" {
		mediaRoot = DefaultMediaRoot
	}
	return &Store{Dir: dir, MediaRoot: mediaRoot, now: time.Now, log: log}
}

// Target returns the directory captures are written to.
func (s *Store) Target() (string, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", s.Dir, err)
		}
		return s.Dir, nil
	}
	return FindDevice(s.MediaRoot)
}

// Name returns a timestamped base name for a new capture.
func (s *Store) Name() string {
	return s.now().Format(TimestampLayout)
}

// Saved lists the files written by one Save call.
type Saved struct {
	Image     string
	Annotated string // empty when no annotated image was given
}

// Save writes <name>.tiff and, when annotated is non-empty,
// <name>_annotated.tiff. An empty name uses the current timestamp.
func (s *Store) Save(name string, img, annotated gocv.Mat) (*Saved, error) {
	dir, err := s.Target()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = s.Name()
	}

	saved := &Saved{Image: filepath.Join(dir, name+".tiff")}
	if err := imaging.WriteTIFF(saved.Image, img); err != nil {
		return nil, err
	}
	if !annotated.Empty() {
		saved.Annotated = filepath.Join(dir, name+"_annotated.tiff")
		if err := imaging.WriteTIFF(saved.Annotated, annotated); err != nil {
			return nil, err
		}
	}
	s.log.Info("saved capture", zap.String("dir", dir), zap.String("name", name))
	return saved, nil
}

// SaveCapture saves one image of a color/UV pair, named
// <timestamp>_color or <timestamp>_UV.
func (s *Store) SaveCapture(stamp string, mode rig.Mode, img, annotated gocv.Mat) (*Saved, error) {
	if stamp == "" {
		stamp = s.Name()
	}
	return s.Save(stamp+mode.Suffix(), img, annotated)
}
