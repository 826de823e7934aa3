package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-compositor/pkg/processing"
)

// Shape is the clip applied to the user image
type Shape int

const (
	// Circle clips to the circle inscribed in the placement square
	Circle Shape = iota
	// Square clips to the placement square itself
	Square
)

func (s Shape) String() string {
	switch s {
	case Circle:
		return "circle"
	case Square:
		return "square"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape parses "circle" or "square"
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "circle", "":
		return Circle, nil
	case "square":
		return Square, nil
	}
	return Circle, fmt.Errorf("unknown mask shape %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Shape) UnmarshalText(text []byte) error {
	v, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DrawMasked draws img into dst, contained and centered in the square at
// (x, y) with side target, clipped to shape. Coordinates are in dst pixels.
// The clip only applies to this call.
func DrawMasked(dst *image.RGBA, img image.Image, x, y, target float64, shape Shape, filter string) {
	if img == nil || !(target >= 0.5) {
		return
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w <= 0 || h <= 0 {
		return
	}

	// Contain: longest side fits the square, aspect preserved
	s := target / math.Max(w, h)
	sw, sh := w*s, h*s
	offX := (target - sw) / 2
	offY := (target - sh) / 2

	dw := max(1, int(math.Round(sw)))
	dh := max(1, int(math.Round(sh)))
	dx := int(math.Round(x + offX))
	dy := int(math.Round(y + offY))
	placed := image.Rect(dx, dy, dx+dw, dy+dh)

	clip := clipBounds(x, y, target)
	r := placed.Intersect(clip).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	var src image.Image = img
	if dw != b.Dx() || dh != b.Dy() {
		src = imaging.Resize(img, dw, dh, processing.ResampleFilter(filter))
	}
	// src origin sits at placed.Min in dst space
	sp := src.Bounds().Min.Add(r.Min.Sub(placed.Min))

	mask := clipMask(r, x, y, target, shape)
	draw.DrawMask(dst, r, src, sp, mask, r.Min, draw.Over)
}

// clipBounds is the pixel rectangle touched by the square at (x, y, target)
func clipBounds(x, y, target float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(x)), int(math.Floor(y)),
		int(math.Ceil(x+target)), int(math.Ceil(y+target)),
	)
}

// clipMask builds an anti-aliased coverage mask over r. Each pixel's alpha is
// the fraction of it that lies inside the clip shape.
func clipMask(r image.Rectangle, x, y, target float64, shape Shape) *image.Alpha {
	mask := image.NewAlpha(r)
	switch shape {
	case Square:
		for py := r.Min.Y; py < r.Max.Y; py++ {
			cy := overlap(float64(py), y, y+target)
			if cy == 0 {
				continue
			}
			row := mask.PixOffset(r.Min.X, py)
			for px := r.Min.X; px < r.Max.X; px++ {
				cx := overlap(float64(px), x, x+target)
				mask.Pix[row+px-r.Min.X] = coverage(cx * cy)
			}
		}
	default:
		radius := target / 2
		ccx, ccy := x+radius, y+radius
		for py := r.Min.Y; py < r.Max.Y; py++ {
			dy := float64(py) + 0.5 - ccy
			row := mask.PixOffset(r.Min.X, py)
			for px := r.Min.X; px < r.Max.X; px++ {
				dx := float64(px) + 0.5 - ccx
				d := math.Hypot(dx, dy)
				mask.Pix[row+px-r.Min.X] = coverage(radius - d + 0.5)
			}
		}
	}
	return mask
}

// overlap returns how much of the unit pixel [p, p+1) lies in [lo, hi)
func overlap(p, lo, hi float64) float64 {
	return math.Max(0, math.Min(p+1, hi)-math.Max(p, lo))
}

func coverage(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*0xff + 0.5)
}
