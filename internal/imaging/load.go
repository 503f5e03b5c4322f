// Package imaging holds the image plumbing shared by the locator, the
// detector and the outer surfaces: decoding, Mat conversion, smoothing,
// annotation and TIFF output.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedImage is returned when neither OpenCV nor the Go decoders
// understand the input.
var ErrUnsupportedImage = errors.New("imaging: unsupported image data")

// Load reads an image file and returns it as a BGR Mat.
func Load(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}
	return ToMat(img)
}

// Decode turns encoded bytes (PNG, JPEG, TIFF, ...) into a BGR Mat.
// OpenCV's codecs are tried first; the Go decoders cover the rest.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrUnsupportedImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return ToMat(img)
}
