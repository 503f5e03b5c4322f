package roi

import (
	"fmt"
	"math"

	"cell-counter/internal/imaging"
	"cell-counter/pkg/geometry"

	"gocv.io/x/gocv"
)

// Locate finds the dish in img (CV_8UC3, BGR) and returns its channels
// masked to the dish interior, pulled in from the rim by innerMargin pixels.
func Locate(img gocv.Mat, innerMargin int, params Params) (*MaskedChannels, error) {
	circle, err := FindDish(img, params)
	if err != nil {
		return nil, err
	}
	return Mask(img, circle, innerMargin)
}

// FindDish runs the dish localization pipeline:
//
//  1. Grayscale
//  2. Max-pool by DownsampleFactor (robust edges, cheaper Hough)
//  3. Canny edges
//  4. Hough circle transform over the calibrated radius band
//  5. Scale the winning circle back to full resolution
func FindDish(img gocv.Mat, params Params) (geometry.Circle, error) {
	if err := validate(img); err != nil {
		return geometry.Circle{}, err
	}
	factor := params.DownsampleFactor
	if factor < 1 {
		factor = 1
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	small, err := maxPool(gray, factor)
	if err != nil {
		return geometry.Circle{}, fmt.Errorf("failed to downsample: %w", err)
	}
	defer small.Close()

	edges := detectEdges(small, params)
	defer edges.Close()

	circle, _, err := houghCircle(edges, params.Radii(img.Rows()))
	if err != nil {
		return geometry.Circle{}, err
	}
	return circle.Scale(factor), nil
}

// Mask splits img into R, G and B channels sharing one exclusion mask that
// keeps only pixels within circle.Radius-innerMargin of the circle center.
func Mask(img gocv.Mat, circle geometry.Circle, innerMargin int) (*MaskedChannels, error) {
	if err := validate(img); err != nil {
		return nil, err
	}

	excluded, err := exclusionMask(img.Rows(), img.Cols(), circle, innerMargin)
	if err != nil {
		return nil, err
	}

	channels := gocv.Split(img)
	if len(channels) != 3 {
		for _, ch := range channels {
			ch.Close()
		}
		excluded.Close()
		return nil, fmt.Errorf("%w: split produced %d channels", ErrInvalidImageShape, len(channels))
	}

	// OpenCV channel order is B, G, R
	return &MaskedChannels{
		Blue:        channels[0],
		Green:       channels[1],
		Red:         channels[2],
		Excluded:    excluded,
		Circle:      circle,
		InnerMargin: innerMargin,
	}, nil
}

func validate(img gocv.Mat) error {
	if img.Empty() || img.Rows() <= 0 || img.Cols() <= 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidImageShape)
	}
	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: want 8-bit 3-channel, got %d channels (type %d)",
			ErrInvalidImageShape, img.Channels(), int(img.Type()))
	}
	return nil
}

// maxPool reduces gray by taking the maximum of each factor x factor block.
// Trailing partial blocks are pooled over the pixels they contain.
func maxPool(gray gocv.Mat, factor int) (gocv.Mat, error) {
	rows, cols := gray.Rows(), gray.Cols()
	outRows := (rows + factor - 1) / factor
	outCols := (cols + factor - 1) / factor

	src, err := gray.DataPtrUint8()
	if err != nil {
		return gocv.NewMat(), err
	}
	pooled := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), outRows, outCols, gocv.MatTypeCV8U)
	dst, err := pooled.DataPtrUint8()
	if err != nil {
		pooled.Close()
		return gocv.NewMat(), err
	}

	for y := 0; y < rows; y++ {
		in := src[y*cols : (y+1)*cols]
		out := dst[(y/factor)*outCols : (y/factor+1)*outCols]
		for x, v := range in {
			if v > out[x/factor] {
				out[x/factor] = v
			}
		}
	}
	return pooled, nil
}

// detectEdges smooths and runs Canny. Returns CV_8UC1 with edges at 255.
func detectEdges(small gocv.Mat, params Params) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	imaging.GaussianBlur(small, &blurred, params.CannySigma, gocv.BorderReflect101)

	edges := gocv.NewMat()
	gocv.Canny(blurred, &edges, params.CannyLow, params.CannyHigh)
	return edges
}

// exclusionMask builds a CV_8UC1 mask that is 0 inside the shrunk circle and
// 255 everywhere else. Inclusion is decided exactly on integer distances so
// no included pixel lies farther than radius-innerMargin from the center.
func exclusionMask(rows, cols int, circle geometry.Circle, innerMargin int) (gocv.Mat, error) {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
	data, err := mask.DataPtrUint8()
	if err != nil {
		mask.Close()
		return gocv.NewMat(), err
	}

	r := circle.Radius - innerMargin
	if r < 0 {
		return mask, nil
	}
	rr := r * r
	for row := max(circle.Row-r, 0); row <= min(circle.Row+r, rows-1); row++ {
		dy := row - circle.Row
		span := isqrt(rr - dy*dy)
		lo := max(circle.Col-span, 0)
		hi := min(circle.Col+span, cols-1)
		for col := lo; col <= hi; col++ {
			data[row*cols+col] = 0
		}
	}
	return mask, nil
}

// isqrt returns the largest s with s*s <= v.
func isqrt(v int) int {
	if v <= 0 {
		return 0
	}
	s := int(math.Sqrt(float64(v)))
	for s*s > v {
		s--
	}
	for (s+1)*(s+1) <= v {
		s++
	}
	return s
}
