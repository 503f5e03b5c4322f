// Package roi locates the circular sample dish in a photograph and masks
// everything outside it.
package roi

import (
	"errors"

	"cell-counter/pkg/geometry"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

var (
	// ErrInvalidImageShape is returned for images that are empty, not
	// 8-bit, or not three-channel.
	ErrInvalidImageShape = errors.New("roi: invalid image shape")

	// ErrDegenerateEdgeMap is returned when edge detection finds nothing
	// to vote for a dish boundary.
	ErrDegenerateEdgeMap = errors.New("roi: edge map is empty")
)

// Params holds the dish localization calibration.
// See params.go for defaults.
type Params struct {
	// Max-pooling block size applied before edge detection
	DownsampleFactor int `yaml:"downsampleFactor"`

	// Canny edge detector: Gaussian sigma and hysteresis thresholds
	CannySigma float64 `yaml:"cannySigma"`
	CannyLow   float32 `yaml:"cannyLow"`
	CannyHigh  float32 `yaml:"cannyHigh"`

	// Dish radius band as a fraction of image height
	MinRadiusRatio float64 `yaml:"minRadiusRatio"`
	MaxRadiusRatio float64 `yaml:"maxRadiusRatio"`
}

// MaskedChannels is the dish interior split by color channel. All three
// channels share one exclusion mask; pixels under the mask take no part in
// detection.
type MaskedChannels struct {
	Red   gocv.Mat // CV_8UC1
	Green gocv.Mat // CV_8UC1
	Blue  gocv.Mat // CV_8UC1

	// Excluded is CV_8UC1, 255 outside the usable dish area and 0 inside.
	Excluded gocv.Mat

	// Circle is the detected dish boundary in full-image pixels.
	Circle geometry.Circle

	// InnerMargin is how far the usable area was pulled in from the rim.
	InnerMargin int
}

// Rows returns the image height.
func (m *MaskedChannels) Rows() int { return m.Excluded.Rows() }

// Cols returns the image width.
func (m *MaskedChannels) Cols() int { return m.Excluded.Cols() }

// IsExcluded reports whether pixel (row, col) is masked out.
func (m *MaskedChannels) IsExcluded(row, col int) bool {
	return m.Excluded.GetUCharAt(row, col) != 0
}

// Close releases the underlying Mats.
func (m *MaskedChannels) Close() error {
	if m == nil {
		return nil
	}
	return multierr.Combine(
		m.Red.Close(),
		m.Green.Close(),
		m.Blue.Close(),
		m.Excluded.Close(),
	)
}
