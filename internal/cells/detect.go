package cells

import (
	"fmt"
	"image"
	"sort"

	"cell-counter/internal/imaging"
	"cell-counter/internal/roi"
	"cell-counter/pkg/geometry"

	"gocv.io/x/gocv"
)

// Detect segments the dish interior and returns the centroid of every
// region passing the shape and area filters, in ascending label order.
// An empty foreground yields an empty list.
func Detect(mc *roi.MaskedChannels, p Params) ([]geometry.Cell, error) {
	seg, err := Segment(mc, p)
	if err != nil {
		return nil, err
	}
	return Filter(seg.Regions, p), nil
}

// Filter keeps the regions accepted by p and converts them to cells.
func Filter(regions []Region, p Params) []geometry.Cell {
	cells := make([]geometry.Cell, 0, len(regions))
	for _, r := range regions {
		if p.Keep(r) {
			cells = append(cells, r.Cell())
		}
	}
	return cells
}

// Segment runs the detector up to and including region measurement:
//
//  1. Score = weighted channel sum, zero where excluded
//  2. Foreground = score above threshold
//  3. Landscape = normalized smoothed distance + normalized smoothed score
//  4. Seeds = spaced local maxima of the landscape
//  5. Watershed of the inverted landscape within the foreground
//
// The returned regions are unfiltered.
func Segment(mc *roi.MaskedChannels, p Params) (*Segmentation, error) {
	if err := checkChannels(mc); err != nil {
		return nil, err
	}
	rows, cols := mc.Rows(), mc.Cols()

	score := scoreField(mc.Blue, mc.Green, mc.Red, p)
	defer score.Close()
	zeros := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV32F)
	zeros.CopyToWithMask(&score, mc.Excluded)
	zeros.Close()

	fg := foregroundMask(score, p.ScoreThreshold)
	defer fg.Close()

	seg := &Segmentation{
		Labels:  LabelMap{Rows: rows, Cols: cols, Labels: make([]int32, rows*cols)},
		Regions: []Region{},
	}
	seg.Foreground = gocv.CountNonZero(fg)
	if seg.Foreground == 0 {
		return seg, nil
	}

	combined, err := landscape(fg, score, p)
	if err != nil {
		return nil, err
	}
	defer combined.Close()

	markers, n, err := findMarkers(combined, p.MinPeakDistance)
	if err != nil {
		return nil, err
	}
	seg.Markers = n

	levels, err := combined.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	inverted := make([]float32, len(levels))
	for i, v := range levels {
		inverted[i] = -v
	}
	mask, err := fg.DataPtrUint8()
	if err != nil {
		return nil, err
	}

	seg.Labels.Labels = watershed(inverted, markers, mask, rows, cols)
	seg.Regions = measureRegions(seg.Labels)
	return seg, nil
}

// HasForeground reports whether any pixel of img (CV_8UC3, BGR) scores
// above the foreground threshold, ignoring the dish entirely.
func HasForeground(img gocv.Mat, p Params) (bool, error) {
	if img.Empty() || img.Type() != gocv.MatTypeCV8UC3 {
		return false, fmt.Errorf("%w: want non-empty 8-bit 3-channel image", roi.ErrInvalidImageShape)
	}
	channels := gocv.Split(img)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	score := scoreField(channels[0], channels[1], channels[2], p)
	defer score.Close()
	_, maxVal, _, _ := gocv.MinMaxLoc(score)
	return float64(maxVal) > p.ScoreThreshold, nil
}

func checkChannels(mc *roi.MaskedChannels) error {
	if mc == nil {
		return fmt.Errorf("%w: no channels", roi.ErrInvalidImageShape)
	}
	rows, cols := mc.Rows(), mc.Cols()
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: empty channels", roi.ErrInvalidImageShape)
	}
	for _, m := range []gocv.Mat{mc.Red, mc.Green, mc.Blue, mc.Excluded} {
		if m.Rows() != rows || m.Cols() != cols || m.Type() != gocv.MatTypeCV8U {
			return fmt.Errorf("%w: channels must be 8-bit single-channel %dx%d",
				roi.ErrInvalidImageShape, cols, rows)
		}
	}
	return nil
}

// scoreField returns the CV_32F weighted channel sum.
func scoreField(blue, green, red gocv.Mat, p Params) gocv.Mat {
	b := asFloat(blue)
	defer b.Close()
	g := asFloat(green)
	defer g.Close()
	r := asFloat(red)
	defer r.Close()

	sum := gocv.NewMat()
	defer sum.Close()
	gocv.AddWeighted(b, p.BlueWeight, g, p.GreenWeight, 0, &sum)

	score := gocv.NewMat()
	gocv.AddWeighted(sum, 1, r, p.RedWeight, 0, &score)
	return score
}

func asFloat(m gocv.Mat) gocv.Mat {
	f := gocv.NewMat()
	m.ConvertTo(&f, gocv.MatTypeCV32F)
	return f
}

// foregroundMask returns CV_8UC1, 255 where score > threshold.
func foregroundMask(score gocv.Mat, threshold float64) gocv.Mat {
	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(score, &bin, float32(threshold), 255, gocv.ThresholdBinary)

	fg := gocv.NewMat()
	bin.ConvertTo(&fg, gocv.MatTypeCV8U)
	return fg
}

// landscape combines how deep a pixel sits inside the foreground with how
// bright its neighborhood is, each scaled to a maximum of 1.
func landscape(fg, score gocv.Mat, p Params) (gocv.Mat, error) {
	dist, err := distanceTransform(fg)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer dist.Close()

	distField := gocv.NewMat()
	defer distField.Close()
	imaging.GaussianBlur(dist, &distField, p.DistanceSigma, gocv.BorderReplicate)

	intensity := gocv.NewMat()
	defer intensity.Close()
	imaging.GaussianBlur(score, &intensity, p.IntensitySigma, gocv.BorderReplicate)

	_, maxDist, _, _ := gocv.MinMaxLoc(distField)
	_, maxIntensity, _, _ := gocv.MinMaxLoc(intensity)

	combined := gocv.NewMat()
	gocv.AddWeighted(distField, inverse(maxDist), intensity, inverse(maxIntensity), 0, &combined)
	return combined, nil
}

func inverse(v float32) float64 {
	if v <= 0 {
		return 1
	}
	return 1 / float64(v)
}

type peak struct {
	row, col int
	value    float32
}

// findMarkers labels the local maxima of combined that are at least
// minDistance (Chebyshev) apart and at least minDistance from the border.
// It returns the row-major marker labels and how many there are.
func findMarkers(combined gocv.Mat, minDistance int) ([]int32, int, error) {
	rows, cols := combined.Rows(), combined.Cols()
	size := 2*minDistance + 1

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
	defer kernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(combined, &dilated, kernel)

	minVal, _, _, _ := gocv.MinMaxLoc(combined)
	values, err := combined.DataPtrFloat32()
	if err != nil {
		return nil, 0, err
	}
	maxima, err := dilated.DataPtrFloat32()
	if err != nil {
		return nil, 0, err
	}

	var peaks []peak
	for row := minDistance; row < rows-minDistance; row++ {
		for col := minDistance; col < cols-minDistance; col++ {
			i := row*cols + col
			if v := values[i]; v == maxima[i] && v > minVal {
				peaks = append(peaks, peak{row: row, col: col, value: v})
			}
		}
	}
	peaks = spacePeaks(peaks, minDistance)

	seeds := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	defer seeds.Close()
	for _, pk := range peaks {
		seeds.SetUCharAt(pk.row, pk.col, 255)
	}

	labels := gocv.NewMat()
	defer labels.Close()
	n := gocv.ConnectedComponentsWithParams(seeds, &labels, 4, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	data, err := labels.DataPtrInt32()
	if err != nil {
		return nil, 0, err
	}
	markers := make([]int32, len(data))
	copy(markers, data)
	return markers, n - 1, nil
}

// spacePeaks keeps the strongest peaks first and drops any peak within
// minDistance of one already kept. Equal values keep scan order.
//
// Kept peaks are bucketed in a grid of (minDistance+1)-sized cells, so a
// candidate only checks the 3x3 buckets around its own.
func spacePeaks(peaks []peak, minDistance int) []peak {
	if len(peaks) == 0 {
		return peaks
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].value > peaks[j].value
	})

	cell := minDistance + 1
	maxRow, maxCol := 0, 0
	for _, p := range peaks {
		maxRow = max(maxRow, p.row)
		maxCol = max(maxCol, p.col)
	}
	gridRows := maxRow/cell + 1
	gridCols := maxCol/cell + 1
	buckets := make([][]int32, gridRows*gridCols)

	kept := make([]peak, 0, len(peaks))
	for _, p := range peaks {
		br, bc := p.row/cell, p.col/cell
		if !crowded(p, kept, buckets, br, bc, gridRows, gridCols, minDistance) {
			buckets[br*gridCols+bc] = append(buckets[br*gridCols+bc], int32(len(kept)))
			kept = append(kept, p)
		}
	}
	return kept
}

// crowded reports whether a kept peak in the buckets around (br, bc) lies
// within minDistance of p.
func crowded(p peak, kept []peak, buckets [][]int32, br, bc, gridRows, gridCols, minDistance int) bool {
	for r := max(br-1, 0); r <= min(br+1, gridRows-1); r++ {
		for c := max(bc-1, 0); c <= min(bc+1, gridCols-1); c++ {
			for _, i := range buckets[r*gridCols+c] {
				k := kept[i]
				if abs(p.row-k.row) <= minDistance && abs(p.col-k.col) <= minDistance {
					return true
				}
			}
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
