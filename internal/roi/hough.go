package roi

import (
	"fmt"
	"image"

	"cell-counter/pkg/geometry"

	"gocv.io/x/gocv"
)

// houghCircle votes every edge pixel onto the circles of each radius that
// pass through it and returns the (center, radius) with the most votes.
//
// The accumulator for one radius is the edge map correlated with a ring of
// that radius, so it is computed with Filter2D rather than per-pixel voting.
// Each ring is normalized by its pixel count so large and small radii
// compete fairly. Ties keep the first maximum: smallest radius, then row,
// then column (MinMaxLoc scans row-major).
func houghCircle(edges gocv.Mat, radii []int) (geometry.Circle, float32, error) {
	if len(radii) == 0 {
		return geometry.Circle{}, 0, fmt.Errorf("%w: no radii to scan", ErrInvalidImageShape)
	}
	if gocv.CountNonZero(edges) == 0 {
		return geometry.Circle{}, 0, ErrDegenerateEdgeMap
	}

	votes := gocv.NewMat()
	defer votes.Close()
	edges.ConvertToWithParams(&votes, gocv.MatTypeCV32F, 1.0/255, 0)

	acc := gocv.NewMat()
	defer acc.Close()

	var best geometry.Circle
	var bestScore float32
	for _, r := range radii {
		ring := ringKernel(r)
		gocv.Filter2D(votes, &acc, gocv.MatTypeCV32F, ring, image.Pt(-1, -1), 0, gocv.BorderConstant)
		ring.Close()

		_, maxVal, _, maxLoc := gocv.MinMaxLoc(acc)
		if maxVal > bestScore {
			bestScore = maxVal
			best = geometry.Circle{Row: maxLoc.Y, Col: maxLoc.X, Radius: r}
		}
	}

	if bestScore <= 0 {
		return geometry.Circle{}, 0, ErrDegenerateEdgeMap
	}
	return best, bestScore, nil
}

// ringKernel returns a (2r+1)x(2r+1) CV_32F kernel holding the rasterized
// circle of radius r. Each perimeter point adds 1/len(perimeter), so the
// doubled octant joins weigh twice and the kernel sums to 1.
func ringKernel(r int) gocv.Mat {
	size := 2*r + 1
	kernel := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size, size, gocv.MatTypeCV32F)
	pts := geometry.CirclePerimeter(r)
	w := float32(1) / float32(len(pts))
	for _, p := range pts {
		kernel.SetFloatAt(r+p.Y, r+p.X, kernel.GetFloatAt(r+p.Y, r+p.X)+w)
	}
	return kernel
}
