package placement

import (
	"math"
	"testing"

	"github.com/menta2k/frame-compositor/pkg/geometry"
)

var avatarFrame = geometry.Size{Width: 1600, Height: 1600}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if err := l.Validate(); err != nil {
		t.Fatalf("DefaultLimits() invalid: %v", err)
	}
	if l.DefaultSize != 1444 {
		t.Errorf("Expected default size 1444, got %f", l.DefaultSize)
	}
}

func TestLimitsValidate(t *testing.T) {
	bad := []Limits{
		{MinSize: 0, MaxSize: 10, DefaultSize: 5, MinPercent: 50, MaxPercent: 100},
		{MinSize: 20, MaxSize: 10, DefaultSize: 5, MinPercent: 50, MaxPercent: 100},
		{MinSize: 1, MaxSize: 10, DefaultSize: 0, MinPercent: 50, MaxPercent: 100},
		{MinSize: 1, MaxSize: 10, DefaultSize: 5, MinPercent: 100, MaxPercent: 50},
	}
	for i, l := range bad {
		if err := l.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, l)
		}
	}
}

func TestClamp(t *testing.T) {
	l := DefaultLimits()

	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"inside", Settings{275, 205, 1444}, Settings{275, 205, 1444}},
		{"too far right", Settings{5000, 205, 1444}, Settings{878, 205, 1444}},
		{"too far up", Settings{275, -5000, 1444}, Settings{275, -722, 1444}},
		{"size too small", Settings{0, 0, 10}, Settings{0, 0, 800}},
		{"size too large then position", Settings{1500, 1500, 9999}, Settings{500, 500, 2200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.in, avatarFrame, l)
			if got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampIdempotent(t *testing.T) {
	l := DefaultLimits()
	frames := []geometry.Size{avatarFrame, {Width: 3764, Height: 4705}, {Width: 300, Height: 100}}
	values := []float64{-1e6, -2000, -722, -1, 0, 0.5, 275, 878, 1599.9, 1e6, math.NaN()}
	sizes := []float64{-5, 0, 799, 800, 1444, 2200, 2201, 1e9, math.NaN()}

	for _, f := range frames {
		for _, x := range values {
			for _, y := range values {
				for _, size := range sizes {
					once := Clamp(Settings{x, y, size}, f, l)
					twice := Clamp(once, f, l)
					if once != twice {
						t.Fatalf("Clamp not idempotent for %v in %v: %v then %v", Settings{x, y, size}, f, once, twice)
					}
				}
			}
		}
	}
}

func TestContains(t *testing.T) {
	s := Settings{X: 275, Y: 205, Size: 1444}
	center := s.Center()
	if center.X != 997 || center.Y != 927 {
		t.Fatalf("Expected center (997, 927), got %v", center)
	}

	tests := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{"center", center, true},
		{"inside", geometry.Pt(997+500, 927), true},
		{"boundary", geometry.Pt(997+722, 927), true},
		{"boundary vertical", geometry.Pt(997, 927-722), true},
		{"just outside", geometry.Pt(997+722.001, 927), false},
		{"bounding square corner", geometry.Pt(275, 205), false},
	}

	for _, tt := range tests {
		if got := s.Contains(tt.p); got != tt.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}
}
