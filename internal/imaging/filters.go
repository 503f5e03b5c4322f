package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

// GaussianKernelSize returns the kernel extent covering four standard
// deviations on each side of the center.
func GaussianKernelSize(sigma float64) image.Point {
	k := 2*int(4*sigma+0.5) + 1
	return image.Pt(k, k)
}

// GaussianBlur smooths src with an isotropic Gaussian of the given sigma.
// The kernel is normalized, so values keep their original range; only the
// shape is softened.
func GaussianBlur(src gocv.Mat, dst *gocv.Mat, sigma float64, border gocv.BorderType) {
	gocv.GaussianBlur(src, dst, GaussianKernelSize(sigma), sigma, sigma, border)
}
