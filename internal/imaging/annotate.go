package imaging

import (
	"image"
	"strconv"

	"cell-counter/pkg/colorutil"
	"cell-counter/pkg/geometry"

	"gocv.io/x/gocv"
)

const (
	markerSize      = 30
	markerThickness = 4
	labelScale      = 10
	labelThickness  = 10
)

// Annotate returns a copy of img with a red cross over every cell and the
// cell count printed in the lower-left corner.
func Annotate(img gocv.Mat, cells []geometry.Cell) gocv.Mat {
	out := img.Clone()
	half := markerSize / 2
	for _, c := range cells {
		gocv.Line(&out, image.Pt(c.X-half, c.Y), image.Pt(c.X+half, c.Y), colorutil.Red, markerThickness)
		gocv.Line(&out, image.Pt(c.X, c.Y-half), image.Pt(c.X, c.Y+half), colorutil.Red, markerThickness)
	}
	gocv.PutText(&out, strconv.Itoa(len(cells)), image.Pt(5, out.Rows()-20),
		gocv.FontHersheySimplex, labelScale, colorutil.White, labelThickness)
	return out
}

// Preview scales img to a size x size square for display.
func Preview(img gocv.Mat, size int) gocv.Mat {
	out := gocv.NewMat()
	gocv.Resize(img, &out, image.Pt(size, size), 0, 0, gocv.InterpolationCubic)
	return out
}
