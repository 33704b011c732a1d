// Package overlay describes and rasterizes what is drawn over the live frame.
package overlay

import (
	"image"
	"image/color"

	"readout/pkg/geometry"
)

// Rect is a rectangle outline in frame coordinates.
type Rect struct {
	Bounds    geometry.RectInt
	Color     color.RGBA
	Thickness int
}

// Text is a line of text. At is the left end of the baseline.
type Text struct {
	At    image.Point
	Value string
	Scale int
	Color color.RGBA
}

// Scene is the set of draw commands for one tick.
type Scene struct {
	Rects []Rect
	Texts []Text
}

// AddRect appends a rectangle outline.
func (s *Scene) AddRect(r geometry.RectInt, c color.RGBA, thickness int) {
	s.Rects = append(s.Rects, Rect{Bounds: r, Color: c, Thickness: thickness})
}

// AddText appends a text line.
func (s *Scene) AddText(at image.Point, value string, scale int, c color.RGBA) {
	s.Texts = append(s.Texts, Text{At: at, Value: value, Scale: scale, Color: c})
}

// Empty reports whether the scene draws nothing.
func (s Scene) Empty() bool {
	return len(s.Rects) == 0 && len(s.Texts) == 0
}
