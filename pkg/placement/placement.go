package placement

import (
	"fmt"
	"math"

	"github.com/menta2k/frame-compositor/pkg/geometry"
)

// Settings anchors the user image inside the frame.
// All fields are frame-native pixels: X/Y is the top-left corner of the
// image's bounding square and Size its side length.
type Settings struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Size float64 `json:"size" yaml:"size"`
}

// Center returns the center of the bounding square
func (s Settings) Center() geometry.Point {
	return geometry.Pt(s.X+s.Size/2, s.Y+s.Size/2)
}

// Contains reports whether a frame-native point lies inside the circular hit
// region of the placement. The boundary counts as inside.
func (s Settings) Contains(p geometry.Point) bool {
	return geometry.Distance(p, s.Center()) <= s.Size/2
}

func (s Settings) String() string {
	return fmt.Sprintf("{x:%.1f y:%.1f size:%.1f}", s.X, s.Y, s.Size)
}

// Limits bounds the placement size and the zoom control.
type Limits struct {
	MinSize     float64 `json:"min_size" yaml:"min_size"`
	MaxSize     float64 `json:"max_size" yaml:"max_size"`
	DefaultSize float64 `json:"default_size" yaml:"default_size"`
	MinPercent  float64 `json:"min_percent" yaml:"min_percent"`
	MaxPercent  float64 `json:"max_percent" yaml:"max_percent"`
}

// DefaultLimits mirrors the interactive preview: 800-2200 native pixels, with
// the percentage control spanning 50-125% of a 1444px default.
func DefaultLimits() Limits {
	return Limits{
		MinSize:     800,
		MaxSize:     2200,
		DefaultSize: 1444,
		MinPercent:  50,
		MaxPercent:  125,
	}
}

// Validate checks that the limits describe a usable range
func (l Limits) Validate() error {
	if l.MinSize <= 0 {
		return fmt.Errorf("min_size must be positive")
	}
	if l.MaxSize < l.MinSize {
		return fmt.Errorf("max_size (%.0f) must not be below min_size (%.0f)", l.MaxSize, l.MinSize)
	}
	if l.DefaultSize <= 0 {
		return fmt.Errorf("default_size must be positive")
	}
	if l.MinPercent <= 0 || l.MaxPercent < l.MinPercent {
		return fmt.Errorf("percent range [%.0f, %.0f] is invalid", l.MinPercent, l.MaxPercent)
	}
	return nil
}

// ClampSize limits a size to [MinSize, MaxSize]
func (l Limits) ClampSize(size float64) float64 {
	if math.IsNaN(size) {
		return l.MinSize
	}
	return geometry.Clamp(size, l.MinSize, l.MaxSize)
}

// Clamp enforces the placement invariants against a frame: size within limits,
// and the bounding square never more than half its size outside the frame.
// Clamp is idempotent.
func Clamp(s Settings, frame geometry.Size, l Limits) Settings {
	s.Size = l.ClampSize(s.Size)
	return clampPosition(s, frame)
}

func clampPosition(s Settings, frame geometry.Size) Settings {
	half := s.Size / 2
	s.X = clampAxis(s.X, -half, float64(frame.Width)-half)
	s.Y = clampAxis(s.Y, -half, float64(frame.Height)-half)
	return s
}

func clampAxis(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return geometry.Clamp(v, lo, hi)
}

// inBounds reports whether the position already satisfies the frame bounds
func inBounds(s Settings, frame geometry.Size) bool {
	return clampPosition(s, frame) == s
}
