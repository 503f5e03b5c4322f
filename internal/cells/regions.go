package cells

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type moments struct {
	n             int
	sr, sc        float64
	srr, scc, src float64
}

// measureRegions computes area, centroid and ellipse axes for every
// positive label, in ascending label order.
func measureRegions(m LabelMap) []Region {
	acc := make(map[int32]*moments)
	var maxLabel int32
	for i, l := range m.Labels {
		if l <= 0 {
			continue
		}
		mo := acc[l]
		if mo == nil {
			mo = &moments{}
			acc[l] = mo
			maxLabel = max(maxLabel, l)
		}
		r := float64(i / m.Cols)
		c := float64(i % m.Cols)
		mo.n++
		mo.sr += r
		mo.sc += c
		mo.srr += r * r
		mo.scc += c * c
		mo.src += r * c
	}

	regions := make([]Region, 0, len(acc))
	for l := int32(1); l <= maxLabel; l++ {
		mo := acc[l]
		if mo == nil {
			continue
		}
		regions = append(regions, mo.region(l))
	}
	return regions
}

// region derives the ellipse with the same normalized second central
// moments as the pixel set: axis lengths are 4*sqrt of the covariance
// eigenvalues.
func (mo *moments) region(label int32) Region {
	n := float64(mo.n)
	cr := mo.sr / n
	cc := mo.sc / n
	vr := mo.srr/n - cr*cr
	vc := mo.scc/n - cc*cc
	vrc := mo.src/n - cr*cc

	var eig mat.EigenSym
	major, minor := 0.0, 0.0
	if eig.Factorize(mat.NewSymDense(2, []float64{vr, vrc, vrc, vc}), false) {
		vals := eig.Values(nil) // ascending
		minor = 4 * math.Sqrt(math.Max(vals[0], 0))
		major = 4 * math.Sqrt(math.Max(vals[1], 0))
	}

	return Region{
		Label:       label,
		Area:        mo.n,
		CentroidRow: cr,
		CentroidCol: cc,
		MajorAxis:   major,
		MinorAxis:   minor,
	}
}
