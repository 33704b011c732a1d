package canvas

import (
	"image"
	"image/color"
	"testing"

	"readout/internal/app"
	"readout/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCanvas(t *testing.T) (*FrameCanvas, *app.Queue) {
	t.Helper()
	test.NewApp()
	q := app.NewQueue()
	fc := NewFrameCanvas(q, 320, 240)
	fc.Resize(fyne.NewSize(320, 240))
	fc.SetFrame(image.NewRGBA(image.Rect(0, 0, 640, 480)))
	return fc, q
}

func TestToFrameScales(t *testing.T) {
	fc, _ := newCanvas(t)
	assert.Equal(t, geometry.Pt(20, 40), fc.ToFrame(fyne.NewPos(10, 20)))
	assert.Equal(t, geometry.Pt(0, 0), fc.ToFrame(fyne.NewPos(-5, -5)))
	assert.Equal(t, geometry.Pt(640, 480), fc.ToFrame(fyne.NewPos(400, 300)))
}

func TestDragPastEdgeStaysInsideFrame(t *testing.T) {
	fc, q := newCanvas(t)

	fc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(300, 200)},
		Dragged:    fyne.NewDelta(0, 0),
	})
	fc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(350, 260)},
		Dragged:    fyne.NewDelta(50, 60),
	})
	fc.DragEnd()

	got := q.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, app.PointerUp(geometry.Pt(640, 480)), got[3])

	r := geometry.FromCorners(got[0].Point, got[3].Point)
	assert.Equal(t, geometry.RectInt{X: 600, Y: 400, Width: 40, Height: 80}, r)
	assert.True(t, r.Fits(640, 480))
}

func TestDragEmitsPointerSequence(t *testing.T) {
	fc, q := newCanvas(t)

	fc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(15, 15)},
		Dragged:    fyne.NewDelta(5, 5),
	})
	fc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 40)},
		Dragged:    fyne.NewDelta(45, 25),
	})
	fc.DragEnd()

	got := q.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, app.PointerDown(geometry.Pt(20, 20)), got[0])
	assert.Equal(t, app.PointerMove(geometry.Pt(30, 30)), got[1])
	assert.Equal(t, app.PointerMove(geometry.Pt(120, 80)), got[2])
	assert.Equal(t, app.PointerUp(geometry.Pt(120, 80)), got[3])

	fc.DragEnd()
	assert.Zero(t, q.Len())
}

func TestTappedIsPressAndRelease(t *testing.T) {
	fc, q := newCanvas(t)
	fc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(1, 2)})
	assert.Equal(t, []app.Input{
		app.PointerDown(geometry.Pt(2, 4)),
		app.PointerUp(geometry.Pt(2, 4)),
	}, q.Drain())
}

func TestDrawScalesFrame(t *testing.T) {
	fc, _ := newCanvas(t)
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	fc.SetFrame(src)

	out := fc.draw(8, 8)
	assert.Equal(t, image.Rect(0, 0, 8, 8), out.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, color.RGBAModel.Convert(out.At(7, 7)))

	assert.Same(t, src, fc.draw(4, 4))
}

func TestDrawBlankBeforeFirstFrame(t *testing.T) {
	test.NewApp()
	fc := NewFrameCanvas(app.NewQueue(), 0, 0)
	out := fc.draw(2, 2)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, color.RGBAModel.Convert(out.At(1, 1)))
}
