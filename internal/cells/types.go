// Package cells segments the masked dish interior into individual cells
// and reports their centroids.
package cells

import "cell-counter/pkg/geometry"

// Params holds the detector calibration. See params.go for defaults.
type Params struct {
	// Channel weights for the foreground score. Red is subtracted to
	// suppress reflections, which show up in all channels.
	BlueWeight  float64 `yaml:"blueWeight"`
	GreenWeight float64 `yaml:"greenWeight"`
	RedWeight   float64 `yaml:"redWeight"`

	// Pixels scoring strictly above this are foreground
	ScoreThreshold float64 `yaml:"scoreThreshold"`

	// Gaussian smoothing of the distance transform and of the score
	DistanceSigma  float64 `yaml:"distanceSigma"`
	IntensitySigma float64 `yaml:"intensitySigma"`

	// Minimum separation of watershed seeds, also the excluded border width
	MinPeakDistance int `yaml:"minPeakDistance"`

	// Region filters
	MaxAxisRatio float64 `yaml:"maxAxisRatio"`
	MinArea      int     `yaml:"minArea"`
	MaxArea      int     `yaml:"maxArea"`
}

// LabelMap is a row-major label image. 0 is background.
type LabelMap struct {
	Rows   int
	Cols   int
	Labels []int32
}

// At returns the label at (row, col).
func (m LabelMap) At(row, col int) int32 {
	return m.Labels[row*m.Cols+col]
}

// Region summarizes one labeled component.
type Region struct {
	Label       int32
	Area        int
	CentroidRow float64
	CentroidCol float64
	MajorAxis   float64 // ellipse with the same second moments
	MinorAxis   float64
}

// Cell returns the region centroid truncated to integer pixel coordinates.
func (r Region) Cell() geometry.Cell {
	return geometry.Cell{X: int(r.CentroidCol), Y: int(r.CentroidRow)}
}

// Segmentation is the full detector output before filtering.
type Segmentation struct {
	Labels     LabelMap
	Regions    []Region // every positive label, ascending
	Markers    int      // watershed seeds
	Foreground int      // foreground pixel count
}
