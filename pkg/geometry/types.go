// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale returns the point scaled independently on each axis.
func (p Point2D) Scale(sx, sy float64) Point2D {
	return Point2D{X: p.X * sx, Y: p.Y * sy}
}

// Round converts to the nearest integer point. Negative coordinates clamp to zero.
func (p Point2D) Round() PointInt {
	return PointInt{
		X: max(0, int(math.Round(p.X))),
		Y: max(0, int(math.Round(p.Y))),
	}
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Clamp limits the point to [0,width]×[0,height]. The far edge is kept so a
// rectangle may reach the frame border.
func (p PointInt) Clamp(width, height int) PointInt {
	return PointInt{
		X: min(max(0, p.X), max(0, width)),
		Y: min(max(0, p.Y), max(0, height)),
	}
}

// Pt is shorthand for PointInt{X: x, Y: y}.
func Pt(x, y int) PointInt {
	return PointInt{X: x, Y: y}
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromCorners builds the rectangle spanned by two opposite corners.
// The origin is the top-left corner and the size is the absolute extent.
func FromCorners(a, b PointInt) RectInt {
	return RectInt{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  abs(b.X - a.X),
		Height: abs(b.Y - a.Y),
	}
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Valid reports whether all four fields are non-negative.
func (r RectInt) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.Width >= 0 && r.Height >= 0
}

// Fits reports whether the rectangle lies within a frame of the given size.
// The far edge may touch the frame edge.
func (r RectInt) Fits(frameWidth, frameHeight int) bool {
	return r.X+r.Width <= frameWidth && r.Y+r.Height <= frameHeight
}

// Image converts to an image.Rectangle.
func (r RectInt) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Array returns the rectangle as [x, y, w, h].
func (r RectInt) Array() [4]int {
	return [4]int{r.X, r.Y, r.Width, r.Height}
}

// String formats the rectangle as x,y wxh.
func (r RectInt) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
