package imaging

import (
	"fmt"
	"io"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"
)

// EncodeTIFF writes mat to w as a deflate-compressed TIFF.
func EncodeTIFF(w io.Writer, mat gocv.Mat) error {
	img, err := ToImage(mat)
	if err != nil {
		return err
	}
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// WriteTIFF saves mat to path.
func WriteTIFF(path string, mat gocv.Mat) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeTIFF(f, mat); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
