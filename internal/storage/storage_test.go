package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cell-counter/internal/rig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0o755))
	}
}

func TestFindDevice(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "pi", "USB_B"),
		filepath.Join(root, "pi", "USB_A"),
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "pi", "0-not-a-dir"), nil, 0o644))

	dev, err := FindDevice(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pi", "USB_A"), dev)
}

func TestFindDevice_SkipsUsersWithoutDevices(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "alice"),
		filepath.Join(root, "bob", "STICK"),
	)

	dev, err := FindDevice(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bob", "STICK"), dev)
}

func TestFindDevice_None(t *testing.T) {
	root := t.TempDir()
	_, err := FindDevice(root)
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = FindDevice(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrNoDevice)
}

func fixedStore(dir, media string) *Store {
	s := New(dir, media, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC) }
	return s
}

func TestStore_Name(t *testing.T) {
	assert.Equal(t, "07_03_2024_14_05_09", fixedStore("", "").Name())
}

func TestStore_SaveToDevice(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "pi", "USB")
	mkdirs(t, dev)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 2, 3, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()
	ann := img.Clone()
	defer ann.Close()

	saved, err := fixedStore("", root).Save("", img, ann)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dev, "07_03_2024_14_05_09.tiff"), saved.Image)
	assert.Equal(t, filepath.Join(dev, "07_03_2024_14_05_09_annotated.tiff"), saved.Annotated)
	assert.FileExists(t, saved.Image)
	assert.FileExists(t, saved.Annotated)
}

func TestStore_SaveWithoutAnnotation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	saved, err := fixedStore(dir, "").SaveCapture("", rig.UV, img, empty)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "07_03_2024_14_05_09_UV.tiff"), saved.Image)
	assert.Empty(t, saved.Annotated)
}

func TestStore_NoDevice(t *testing.T) {
	img := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	_, err := fixedStore("", t.TempDir()).Save("x", img, empty)
	assert.ErrorIs(t, err, ErrNoDevice)
}
