package compositor

import (
	"fmt"
	"image"

	"github.com/menta2k/frame-compositor/pkg/geometry"
)

// DefaultMaxPixels caps the drawing surface. A 4096x4096 frame fits, larger
// surfaces are refused rather than allocated.
const DefaultMaxPixels = 64 << 20

// Canvas is a reusable drawing surface for previews. It is reallocated only
// when the requested size changes.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas returns an empty canvas
func NewCanvas() *Canvas {
	return &Canvas{}
}

// Image returns the current surface, or nil before the first render
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Size returns the current surface size
func (c *Canvas) Size() geometry.Size {
	if c.img == nil {
		return geometry.Size{}
	}
	b := c.img.Bounds()
	return geometry.Size{Width: b.Dx(), Height: b.Dy()}
}

// Resize makes the surface exactly size. Contents are undefined afterwards.
func (c *Canvas) Resize(size geometry.Size, maxPixels int) error {
	if c.Size() == size {
		return nil
	}
	img, err := newSurface(size, maxPixels)
	if err != nil {
		return err
	}
	c.img = img
	return nil
}

// Clear makes every pixel fully transparent
func (c *Canvas) Clear() {
	if c.img == nil {
		return
	}
	clear(c.img.Pix)
}

func newSurface(size geometry.Size, maxPixels int) (*image.RGBA, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%w: invalid surface size %dx%d", ErrRender, size.Width, size.Height)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if size.Width > maxPixels/size.Height {
		return nil, fmt.Errorf("%w: surface %dx%d exceeds %d pixels", ErrRender, size.Width, size.Height, maxPixels)
	}
	return image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)), nil
}
