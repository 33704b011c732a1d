package dump

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDumpWritesBothImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scans")
	d, err := New(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	crop := imaging.New(8, 4, color.NRGBA{R: 255, A: 255})
	binary := image.NewGray(image.Rect(0, 0, 8, 4))
	require.NoError(t, d.Dump(crop, binary))
	require.NoError(t, d.Dump(crop, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"20240102T030405.000-0001-crop.png",
		"20240102T030405.000-0001-binary.png",
		"20240102T030405.000-0002-crop.png",
	}, names)

	img, err := imaging.Open(filepath.Join(dir, "20240102T030405.000-0001-crop.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
}

func TestNewFailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err := New(file, nil)
	assert.Error(t, err)
}
