package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// Render copies frame into a new RGBA image and draws the scene on top.
// The frame is left untouched.
func Render(frame image.Image, scene Scene) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)
	if scene.Empty() {
		return out
	}

	for _, r := range scene.Rects {
		drawRect(out, r)
	}
	for _, t := range scene.Texts {
		drawText(out, t)
	}
	return out
}

// drawRect draws an outline whose edges grow inward from the bounds.
func drawRect(output *image.RGBA, r Rect) {
	x1, y1 := r.Bounds.X, r.Bounds.Y
	x2, y2 := r.Bounds.X+r.Bounds.Width, r.Bounds.Y+r.Bounds.Height
	thickness := max(1, r.Thickness)

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setClipped(output, x, y1+t, r.Color)
			setClipped(output, x, y2-t, r.Color)
		}
		for y := y1; y <= y2; y++ {
			setClipped(output, x1+t, y, r.Color)
			setClipped(output, x2-t, y, r.Color)
		}
	}
}

func setClipped(output *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(output.Bounds()) {
		output.SetRGBA(x, y, c)
	}
}

// drawText renders with the 7x13 bitmap face and scales it up nearest-neighbour.
func drawText(output *image.RGBA, t Text) {
	if t.Value == "" {
		return
	}
	scale := max(1, t.Scale)

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()
	width := font.MeasureString(face, t.Value).Ceil()

	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(t.Color),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(ascent)},
	}
	d.DrawString(t.Value)

	dst := image.Rect(
		t.At.X,
		t.At.Y-ascent*scale,
		t.At.X+width*scale,
		t.At.Y+(height-ascent)*scale,
	)
	draw.NearestNeighbor.Scale(output, dst, glyphs, glyphs.Bounds(), draw.Over, nil)
}

// TextSize returns the pixel extent of value at scale.
func TextSize(value string, scale int) image.Point {
	scale = max(1, scale)
	metrics := face.Metrics()
	return image.Point{
		X: font.MeasureString(face, value).Ceil() * scale,
		Y: (metrics.Ascent.Ceil() + metrics.Descent.Ceil()) * scale,
	}
}
