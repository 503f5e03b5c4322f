package roi

import (
	"testing"

	"cell-counter/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func ringEdges(size, row, col, radius int) gocv.Mat {
	edges := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size, size, gocv.MatTypeCV8U)
	for _, p := range geometry.CirclePerimeter(radius) {
		edges.SetUCharAt(row+p.Y, col+p.X, 255)
	}
	return edges
}

func TestHoughCircle_ExactRing(t *testing.T) {
	edges := ringEdges(64, 30, 34, 10)
	defer edges.Close()

	circle, score, err := houghCircle(edges, []int{8, 9, 10, 11, 12})
	require.NoError(t, err)

	assert.Equal(t, geometry.Circle{Row: 30, Col: 34, Radius: 10}, circle)
	assert.InDelta(t, 1.0, score, 1e-4)
}

func TestHoughCircle_NoEdges(t *testing.T) {
	edges := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 32, 32, gocv.MatTypeCV8U)
	defer edges.Close()

	_, _, err := houghCircle(edges, []int{5, 6})
	assert.ErrorIs(t, err, ErrDegenerateEdgeMap)
}

func TestHoughCircle_NoRadii(t *testing.T) {
	edges := ringEdges(32, 16, 16, 5)
	defer edges.Close()

	_, _, err := houghCircle(edges, nil)
	assert.ErrorIs(t, err, ErrInvalidImageShape)
}

func TestRingKernel_Normalized(t *testing.T) {
	kernel := ringKernel(7)
	defer kernel.Close()

	assert.Equal(t, 15, kernel.Rows())
	assert.InDelta(t, 1.0, kernel.Sum().Val1, 1e-5)
	assert.Zero(t, kernel.GetFloatAt(7, 7))
	assert.NotZero(t, kernel.GetFloatAt(0, 7))
}

func TestRingKernel_OctantJoinsWeighTwice(t *testing.T) {
	const r = 7
	kernel := ringKernel(r)
	defer kernel.Close()

	w := float32(1) / float32(len(geometry.CirclePerimeter(r)))
	// top of the ring lies on an axis, shared by two octants
	assert.InDelta(t, 2*w, kernel.GetFloatAt(0, r), 1e-7)

	// (dx 1, dy 7) belongs to one octant only
	assert.InDelta(t, w, kernel.GetFloatAt(r+7, r+1), 1e-7)
}
