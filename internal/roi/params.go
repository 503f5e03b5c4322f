package roi

import "math"

// DefaultParams returns the calibration of the imaging rig: a dish whose
// rim sits between 1250 and 1400 pixels from the center of a 3040x3040
// frame.
func DefaultParams() Params {
	return Params{
		DownsampleFactor: 5,

		// Canny runs on the max-pooled image; smoothing is heavy because
		// the dish rim is a soft, glare-prone edge.
		CannySigma: 3,
		CannyLow:   5,
		CannyHigh:  10,

		MinRadiusRatio: 1250.0 / 3040.0,
		MaxRadiusRatio: 1400.0 / 3040.0,
	}
}

// WithRadiusBand returns a copy of params with the dish radius band given as
// fractions of the image height.
func (p Params) WithRadiusBand(minRatio, maxRatio float64) Params {
	p.MinRadiusRatio = minRatio
	p.MaxRadiusRatio = maxRatio
	return p
}

// WithCanny returns a copy of params with custom edge detection settings.
func (p Params) WithCanny(sigma float64, low, high float32) Params {
	p.CannySigma = sigma
	p.CannyLow = low
	p.CannyHigh = high
	return p
}

// RadiusBand returns the [min, max) dish radius in downsampled pixels for
// an image of the given height.
func (p Params) RadiusBand(height int) (float64, float64) {
	f := float64(p.DownsampleFactor)
	return p.MinRadiusRatio * float64(height) / f, p.MaxRadiusRatio * float64(height) / f
}

// Radii lists the integer radii scanned by the Hough transform: one step
// per pixel starting at the truncated lower bound, as many steps as the
// band is wide (rounded up).
func (p Params) Radii(height int) []int {
	lo, hi := p.RadiusBand(height)
	n := int(math.Ceil(hi - lo))
	if n <= 0 {
		return nil
	}
	start := int(lo)
	radii := make([]int, n)
	for i := range radii {
		radii[i] = start + i
	}
	return radii
}
