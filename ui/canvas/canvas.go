// Package canvas provides the live frame widget that turns mouse drags into ROI input.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"readout/internal/app"
	"readout/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"
)

// Sink receives pointer input in frame coordinates. *app.Queue satisfies it.
type Sink interface {
	Push(in app.Input)
}

// FrameCanvas shows the most recent rendered frame stretched to the widget.
type FrameCanvas struct {
	widget.BaseWidget

	sink   Sink
	raster *fynecanvas.Raster

	mu    sync.Mutex
	frame image.Image

	// Drag state; only touched on the fyne event goroutine.
	dragging bool
	last     fyne.Position
}

var (
	_ fyne.Draggable = (*FrameCanvas)(nil)
	_ fyne.Tappable  = (*FrameCanvas)(nil)
)

// NewFrameCanvas creates a canvas with an initial size of w×h.
func NewFrameCanvas(sink Sink, w, h int) *FrameCanvas {
	fc := &FrameCanvas{sink: sink}
	fc.raster = fynecanvas.NewRaster(fc.draw)
	fc.raster.ScaleMode = fynecanvas.ImageScalePixels
	if w > 0 && h > 0 {
		fc.raster.SetMinSize(fyne.NewSize(float32(w), float32(h)))
	}
	fc.ExtendBaseWidget(fc)
	return fc
}

// CreateRenderer implements fyne.Widget.
func (fc *FrameCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(fc.raster)
}

// SetFrame replaces the displayed frame and schedules a redraw.
func (fc *FrameCanvas) SetFrame(frame image.Image) {
	fc.mu.Lock()
	fc.frame = frame
	fc.mu.Unlock()
	fc.raster.Refresh()
}

// Frame returns the displayed frame, or nil before the first one.
func (fc *FrameCanvas) Frame() image.Image {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.frame
}

func (fc *FrameCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	frame := fc.Frame()
	if frame == nil {
		xdraw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)
		return out
	}
	if frame.Bounds().Dx() == w && frame.Bounds().Dy() == h {
		return frame
	}
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	return out
}

// ToFrame maps a widget position to frame pixel coordinates, clamped to the
// frame so a drag that leaves the widget still yields a rectangle that fits.
func (fc *FrameCanvas) ToFrame(pos fyne.Position) geometry.PointInt {
	frame := fc.Frame()
	size := fc.Size()
	p := geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)}
	if frame == nil || size.Width <= 0 || size.Height <= 0 {
		return p.Round()
	}
	b := frame.Bounds()
	return p.Scale(float64(b.Dx())/float64(size.Width), float64(b.Dy())/float64(size.Height)).
		Round().
		Clamp(b.Dx(), b.Dy())
}

// Dragged emits a press at the drag origin on the first event and a move on every event.
func (fc *FrameCanvas) Dragged(ev *fyne.DragEvent) {
	if !fc.dragging {
		fc.dragging = true
		fc.sink.Push(app.PointerDown(fc.ToFrame(ev.Position.Subtract(ev.Dragged))))
	}
	fc.last = ev.Position
	fc.sink.Push(app.PointerMove(fc.ToFrame(ev.Position)))
}

// DragEnd emits the release at the last drag position.
func (fc *FrameCanvas) DragEnd() {
	if !fc.dragging {
		return
	}
	fc.dragging = false
	fc.sink.Push(app.PointerUp(fc.ToFrame(fc.last)))
}

// Tapped is a press and release at the same point.
func (fc *FrameCanvas) Tapped(ev *fyne.PointEvent) {
	p := fc.ToFrame(ev.Position)
	fc.sink.Push(app.PointerDown(p))
	fc.sink.Push(app.PointerUp(p))
}
