package geometry

import (
	"math"
)

// Point is a position in either frame-native or display pixels.
// Which space a Point lives in is up to the caller.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Div divides both coordinates by k
func (p Point) Div(k float64) Point {
	return Point{X: p.X / k, Y: p.Y / k}
}

// Mul multiplies both coordinates by k
func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Distance returns the euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Size is a pixel width and height
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the size has no area
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale converts between frame-native and display coordinates.
// A Scale of 0.5 means one display pixel covers two native pixels.
type Scale float64

// ScaleFor derives the display scale of a render target from its width and the
// frame's native width.
func ScaleFor(targetWidth, frameWidth int) Scale {
	if frameWidth <= 0 {
		return 0
	}
	return Scale(float64(targetWidth) / float64(frameWidth))
}

// Valid reports whether the scale can be inverted
func (s Scale) Valid() bool {
	return s > 0 && !math.IsInf(float64(s), 0) && !math.IsNaN(float64(s))
}

// ToNative converts a display-space point to frame-native pixels
func (s Scale) ToNative(p Point) Point {
	return p.Div(float64(s))
}

// ToDisplay converts a frame-native point to display pixels
func (s Scale) ToDisplay(p Point) Point {
	return p.Mul(float64(s))
}

// Length scales a frame-native length to display pixels
func (s Scale) Length(v float64) float64 {
	return v * float64(s)
}

// Viewport is the space available to the interactive preview.
type Viewport struct {
	Width  int
	Height int
}

// FitWidth sizes a render target for a frame so that it occupies a fraction of
// the viewport width. Wide viewports (at or above breakpoint) use wideFraction,
// narrow ones narrowFraction. Height follows the frame's aspect ratio.
func FitWidth(vp Viewport, frame Size, breakpoint int, wideFraction, narrowFraction float64) Size {
	if frame.Empty() || vp.Width <= 0 {
		return Size{}
	}
	fraction := narrowFraction
	if vp.Width >= breakpoint {
		fraction = wideFraction
	}
	containerWidth := float64(vp.Width) * fraction
	scale := containerWidth / float64(frame.Width)
	return Size{
		Width:  int(math.Round(float64(frame.Width) * scale)),
		Height: int(math.Round(float64(frame.Height) * scale)),
	}
}

// FitInside returns the largest size with the frame's aspect ratio that fits
// inside the viewport.
func FitInside(vp Viewport, frame Size) Size {
	if frame.Empty() || vp.Width <= 0 || vp.Height <= 0 {
		return Size{}
	}
	scale := math.Min(float64(vp.Width)/float64(frame.Width), float64(vp.Height)/float64(frame.Height))
	w := int(math.Floor(float64(frame.Width) * scale))
	h := int(math.Floor(float64(frame.Height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Size{Width: w, Height: h}
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
