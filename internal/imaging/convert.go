package imaging

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// ToMat converts a Go image to a CV_8UC3 Mat in OpenCV's BGR order.
func ToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	// Fast path: tightly packed RGBA can be handed to OpenCV directly
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*bounds.Dx() && bounds.Min == (image.Point{}) {
		mat, err := gocv.NewMatFromBytes(bounds.Dy(), bounds.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
		if err != nil {
			return gocv.NewMat(), err
		}
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
		mat.Close()
		return bgr, nil
	}

	width := bounds.Dx()
	height := bounds.Dy()
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	data, err := mat.DataPtrUint8()
	if err != nil {
		mat.Close()
		return gocv.NewMat(), err
	}

	// Parallelize by horizontal stripes
	forEachStripe(height, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			row := data[y*width*3 : (y+1)*width*3]
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				row[x*3+0] = uint8(b >> 8)
				row[x*3+1] = uint8(g >> 8)
				row[x*3+2] = uint8(r >> 8)
			}
		}
	})
	return mat, nil
}

// ToImage converts a CV_8UC3 (BGR) or CV_8UC1 Mat to an RGBA image.
func ToImage(mat gocv.Mat) (*image.RGBA, error) {
	src := mat
	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
	case gocv.MatTypeCV8UC1:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
		src = bgr
	default:
		return nil, fmt.Errorf("unsupported mat type %d", int(mat.Type()))
	}
	if !src.IsContinuous() {
		src = src.Clone()
		defer src.Close()
	}

	h := src.Rows()
	w := src.Cols()
	data, err := src.DataPtrUint8()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride
	forEachStripe(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			rowOffset := y * stride
			in := data[y*w*3 : (y+1)*w*3]
			for x := 0; x < w; x++ {
				pixOffset := rowOffset + x*4
				img.Pix[pixOffset+0] = in[x*3+2] // R
				img.Pix[pixOffset+1] = in[x*3+1] // G
				img.Pix[pixOffset+2] = in[x*3+0] // B
				img.Pix[pixOffset+3] = 255
			}
		}
	})
	return img, nil
}

// forEachStripe splits [0, rows) into one stripe per CPU and runs fn on
// each concurrently.
func forEachStripe(rows int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, rows)
		if startY >= rows {
			break
		}
		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}
