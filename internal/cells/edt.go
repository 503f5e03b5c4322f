package cells

import (
	"math"

	"gocv.io/x/gocv"
)

// edtFar stands in for infinity in the squared-distance passes.
const edtFar = 1e20

// distanceTransform returns, as CV_32F, the exact Euclidean distance from
// every nonzero pixel of fg (CV_8UC1) to the nearest zero pixel.
func distanceTransform(fg gocv.Mat) (gocv.Mat, error) {
	rows, cols := fg.Rows(), fg.Cols()
	mask, err := fg.DataPtrUint8()
	if err != nil {
		return gocv.NewMat(), err
	}

	dist := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	out, err := dist.DataPtrFloat32()
	if err != nil {
		dist.Close()
		return gocv.NewMat(), err
	}
	copy(out, edt(mask, rows, cols))
	return dist, nil
}

// edt is the two-pass squared distance transform of Felzenszwalb and
// Huttenlocher: one lower envelope of parabolas per column, then per row.
// Pixels with no zero pixel anywhere in the image get rows+cols.
func edt(mask []uint8, rows, cols int) []float32 {
	grid := make([]float64, rows*cols)
	for i, m := range mask {
		if m != 0 {
			grid[i] = edtFar
		}
	}

	n := max(rows, cols)
	f := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			f[row] = grid[row*cols+col]
		}
		squaredDistance1D(f[:rows], d[:rows], v, z)
		for row := 0; row < rows; row++ {
			grid[row*cols+col] = d[row]
		}
	}
	for row := 0; row < rows; row++ {
		line := grid[row*cols : (row+1)*cols]
		copy(f, line)
		squaredDistance1D(f[:cols], d[:cols], v, z)
		copy(line, d[:cols])
	}

	out := make([]float32, rows*cols)
	limit := float64(rows + cols)
	for i, sq := range grid {
		out[i] = float32(math.Min(math.Sqrt(sq), limit))
	}
	return out
}

// squaredDistance1D writes d[q] = min_p (q-p)^2 + f[p].
func squaredDistance1D(f, d []float64, v []int, z []float64) {
	if len(f) == 0 {
		return
	}
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < len(f); q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := range f {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// intersect returns where the parabolas rooted at q and p cross.
func intersect(f []float64, q, p int) float64 {
	fq, fp := float64(q), float64(p)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}
