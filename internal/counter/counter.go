// Package counter chains dish localization and cell detection into a
// single call.
package counter

import (
	"fmt"
	"image"
	"time"

	"cell-counter/internal/cells"
	"cell-counter/internal/imaging"
	"cell-counter/internal/rig"
	"cell-counter/internal/roi"
	"cell-counter/pkg/geometry"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DefaultInnerMargin is how far the usable area is pulled in from the dish
// rim, in full-resolution pixels.
const DefaultInnerMargin = 50

// Counter holds the calibration for one rig.
type Counter struct {
	ROI         roi.Params
	Cells       cells.Params
	InnerMargin int

	// Resolution is the frame height the radius band was calibrated on.
	// Other heights still work, the band scales with them, but are logged.
	Resolution int

	log *zap.Logger
}

// Result is the outcome of one count.
type Result struct {
	Cells []geometry.Cell

	// Circle is the dish boundary. Zero when the frame had no foreground
	// and localization was skipped.
	Circle    geometry.Circle
	DishFound bool

	Duration time.Duration
}

// Count returns the number of cells found.
func (r *Result) Count() int { return len(r.Cells) }

// New returns a Counter with the rig defaults. A nil logger discards output.
func New(log *zap.Logger) *Counter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Counter{
		ROI:         roi.DefaultParams(),
		Cells:       cells.DefaultParams(),
		InnerMargin: DefaultInnerMargin,
		Resolution:  rig.CameraResolution,
		log:         log,
	}
}

// WithMargin returns a copy of c using a different inner margin.
func (c *Counter) WithMargin(margin int) *Counter {
	cp := *c
	cp.InnerMargin = margin
	return &cp
}

// CountFile loads an image from disk and counts it.
func (c *Counter) CountFile(path string) (*Result, error) {
	mat, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return c.Count(mat)
}

// CountImage counts cells in a Go image.
func (c *Counter) CountImage(img image.Image) (*Result, error) {
	mat, err := imaging.ToMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()
	return c.Count(mat)
}

// Count runs the full pipeline on a BGR frame. A frame with no pixel above
// the foreground threshold yields no cells without locating the dish.
func (c *Counter) Count(img gocv.Mat) (*Result, error) {
	start := time.Now()
	result := &Result{Cells: []geometry.Cell{}}

	has, err := cells.HasForeground(img, c.Cells)
	if err != nil {
		return nil, err
	}
	if c.Resolution > 0 && img.Rows() != c.Resolution {
		c.log.Warn("frame height differs from the calibrated camera resolution",
			zap.Int("rows", img.Rows()), zap.Int("calibrated", c.Resolution))
	}
	if !has {
		result.Duration = time.Since(start)
		c.log.Debug("no foreground, skipping dish localization",
			zap.Int("rows", img.Rows()), zap.Int("cols", img.Cols()))
		return result, nil
	}

	masked, err := roi.Locate(img, c.InnerMargin, c.ROI)
	if err != nil {
		return nil, fmt.Errorf("locate dish: %w", err)
	}
	defer func() {
		if err := masked.Close(); err != nil {
			c.log.Warn("failed to release masked channels", zap.Error(err))
		}
	}()
	located := time.Since(start)
	c.log.Debug("dish located",
		zap.Int("row", masked.Circle.Row),
		zap.Int("col", masked.Circle.Col),
		zap.Int("radius", masked.Circle.Radius),
		zap.Duration("elapsed", located))

	found, err := cells.Detect(masked, c.Cells)
	if err != nil {
		return nil, fmt.Errorf("detect cells: %w", err)
	}

	result.Cells = found
	result.Circle = masked.Circle
	result.DishFound = true
	result.Duration = time.Since(start)
	c.log.Info("cells counted",
		zap.Int("count", len(found)),
		zap.Duration("locate", located),
		zap.Duration("total", result.Duration))
	return result, nil
}
