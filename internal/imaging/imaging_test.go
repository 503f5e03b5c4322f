package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"cell-counter/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(10 * x), G: uint8(20 * y), B: 7, A: 255})
		}
	}
	return img
}

func TestGaussianKernelSize(t *testing.T) {
	assert.Equal(t, image.Pt(25, 25), GaussianKernelSize(3))
	assert.Equal(t, image.Pt(33, 33), GaussianKernelSize(4))
	assert.Equal(t, image.Pt(65, 65), GaussianKernelSize(8))
}

func TestToMat_BGROrder(t *testing.T) {
	mat, err := ToMat(testImage())
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, gocv.MatTypeCV8UC3, mat.Type())
	assert.Equal(t, 6, mat.Rows())
	assert.Equal(t, 8, mat.Cols())

	v := mat.GetVecbAt(5, 3)
	assert.Equal(t, uint8(7), v[0])
	assert.Equal(t, uint8(100), v[1])
	assert.Equal(t, uint8(30), v[2])
}

func TestToMat_SubImage(t *testing.T) {
	sub := testImage().SubImage(image.Rect(2, 1, 6, 4))
	mat, err := ToMat(sub)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 3, mat.Rows())
	assert.Equal(t, 4, mat.Cols())
	v := mat.GetVecbAt(0, 0)
	assert.Equal(t, uint8(20), v[2])
	assert.Equal(t, uint8(20), v[1])
}

func TestToMat_Empty(t *testing.T) {
	_, err := ToMat(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}

func TestToImage_RoundTrip(t *testing.T) {
	src := testImage()
	mat, err := ToMat(src)
	require.NoError(t, err)
	defer mat.Close()

	out, err := ToImage(mat)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestToImage_Gray(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(42, 0, 0, 0), 3, 3, gocv.MatTypeCV8UC1)
	defer gray.Close()

	out, err := ToImage(gray)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 42, G: 42, B: 42, A: 255}, out.RGBAAt(1, 1))
}

func TestDecode_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	mat, err := Decode(buf.Bytes())
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 6, mat.Rows())
	assert.Equal(t, 8, mat.Cols())
	assert.Equal(t, uint8(70), mat.GetVecbAt(0, 7)[2])
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestWriteTIFF_Load(t *testing.T) {
	mat, err := ToMat(testImage())
	require.NoError(t, err)
	defer mat.Close()

	path := filepath.Join(t.TempDir(), "capture.tiff")
	require.NoError(t, WriteTIFF(path, mat))

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, mat.ToBytes(), loaded.ToBytes())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tiff"))
	assert.Error(t, err)
}

func TestAnnotate(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 800, 800, gocv.MatTypeCV8UC3)
	defer img.Close()

	// far from the count label in the lower-left corner
	out := Annotate(img, []geometry.Cell{{X: 600, Y: 100}})
	defer out.Close()

	assert.Equal(t, uint8(0), img.GetVecbAt(100, 600)[2])

	center := out.GetVecbAt(100, 600)
	assert.Equal(t, uint8(0), center[0])
	assert.Equal(t, uint8(0), center[1])
	assert.Equal(t, uint8(255), center[2])

	arm := out.GetVecbAt(100, 600+12)
	assert.Equal(t, uint8(255), arm[2])
}

func TestPreview(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 300, 300, gocv.MatTypeCV8UC3)
	defer img.Close()

	out := Preview(img, 120)
	defer out.Close()

	assert.Equal(t, 120, out.Rows())
	assert.Equal(t, 120, out.Cols())
	assert.Equal(t, uint8(30), out.GetVecbAt(60, 60)[2])
}
