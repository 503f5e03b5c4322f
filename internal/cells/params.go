package cells

// DefaultParams returns the detector calibration used on the rig.
func DefaultParams() Params {
	return Params{
		BlueWeight:  1,
		GreenWeight: 1,
		RedWeight:   -0.5,

		ScoreThreshold: 150,

		DistanceSigma:  4,
		IntensitySigma: 8,

		MinPeakDistance: 10,

		MaxAxisRatio: 3,
		MinArea:      1000,
		MaxArea:      100000,
	}
}

// WithAreaRange returns a copy of params with custom area bounds (exclusive).
func (p Params) WithAreaRange(minArea, maxArea int) Params {
	p.MinArea = minArea
	p.MaxArea = maxArea
	return p
}

// WithThreshold returns a copy of params with a custom foreground threshold.
func (p Params) WithThreshold(threshold float64) Params {
	p.ScoreThreshold = threshold
	return p
}

// Keep reports whether a region passes the shape and area filters.
func (p Params) Keep(r Region) bool {
	if !(r.MajorAxis < p.MaxAxisRatio*r.MinorAxis) {
		return false
	}
	return r.Area > p.MinArea && r.Area < p.MaxArea
}
