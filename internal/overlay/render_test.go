package overlay

import (
	"image"
	"image/color"
	"testing"

	"readout/pkg/colorutil"
	"readout/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func grayFrame(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 50
	}
	return img
}

func TestRenderCopiesFrame(t *testing.T) {
	frame := grayFrame(20, 10)
	out := Render(frame, Scene{})

	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
	assert.Equal(t, color.RGBA{R: 50, G: 50, B: 50, A: 255}, out.RGBAAt(5, 5))
	assert.Equal(t, uint8(50), frame.GrayAt(0, 0).Y, "frame untouched")
}

func TestRenderRectOutline(t *testing.T) {
	var s Scene
	s.AddRect(geometry.RectInt{X: 2, Y: 2, Width: 10, Height: 5}, colorutil.Green, 2)
	out := Render(grayFrame(20, 10), s)

	assert.Equal(t, colorutil.Green, out.RGBAAt(2, 2))
	assert.Equal(t, colorutil.Green, out.RGBAAt(12, 7))
	assert.Equal(t, colorutil.Green, out.RGBAAt(3, 4), "second band of a 2px edge")
	assert.NotEqual(t, colorutil.Green, out.RGBAAt(7, 5), "interior untouched")
	assert.NotEqual(t, colorutil.Green, out.RGBAAt(15, 2))
}

func TestRenderClipsOutOfFrame(t *testing.T) {
	var s Scene
	s.AddRect(geometry.RectInt{X: 15, Y: 5, Width: 100, Height: 100}, colorutil.Blue, 1)
	assert.NotPanics(t, func() { Render(grayFrame(20, 10), s) })
}

func TestRenderText(t *testing.T) {
	var s Scene
	s.AddText(image.Pt(2, 20), "88", 2, colorutil.Green)
	out := Render(grayFrame(60, 30), s)

	found := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 60; x++ {
			if out.RGBAAt(x, y) == colorutil.Green {
				found++
				assert.GreaterOrEqual(t, x, 2)
			}
		}
	}
	assert.Positive(t, found)
}

func TestTextSize(t *testing.T) {
	assert.Equal(t, image.Pt(14, 13), TextSize("ab", 1))
	assert.Equal(t, image.Pt(28, 26), TextSize("ab", 2))
}

func TestSceneEmpty(t *testing.T) {
	var s Scene
	assert.True(t, s.Empty())
	s.AddText(image.Pt(0, 0), "x", 1, colorutil.White)
	assert.False(t, s.Empty())
}

func TestRenderEmptySceneCopiesFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(5, 5, 9, 8))
	frame.SetRGBA(6, 6, colorutil.Green)

	out := Render(frame, Scene{})
	assert.Equal(t, image.Rect(0, 0, 4, 3), out.Bounds())
	assert.Equal(t, colorutil.Green, out.RGBAAt(1, 1))

	out.SetRGBA(1, 1, colorutil.Blue)
	assert.Equal(t, colorutil.Green, frame.RGBAAt(6, 6))
}
