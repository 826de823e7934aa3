package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/menta2k/frame-compositor/pkg/geometry"
)

// CaptionStyle describes the name text drawn over the frame. All lengths are
// in frame-native pixels and are multiplied by the render scale.
type CaptionStyle struct {
	Anchor       geometry.Point // center of the text
	FontSize     float64
	FontPath     string // TTF/OTF file; empty uses Go Bold
	StrokeWidth  float64
	StrokeColor  color.NRGBA
	FillColor    color.NRGBA
	ShadowColor  color.NRGBA
	ShadowOffset geometry.Point
	ShadowBlur   float64
}

// DefaultCaptionStyle matches the badge frame: centered near the bottom edge,
// white text with a pink outline.
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		Anchor:       geometry.Pt(1883, 3770),
		FontSize:     195,
		StrokeWidth:  4,
		StrokeColor:  color.NRGBA{0xff, 0x69, 0xb4, 0xff},
		FillColor:    color.NRGBA{0xff, 0xff, 0xff, 0xff},
		ShadowColor:  color.NRGBA{0, 0, 0, 0x1f},
		ShadowOffset: geometry.Pt(2, 1),
		ShadowBlur:   8,
	}
}

type captionRenderer struct {
	font  *opentype.Font
	style CaptionStyle
}

func newCaptionRenderer(style CaptionStyle) (*captionRenderer, error) {
	data := gobold.TTF
	if style.FontPath != "" {
		b, err := os.ReadFile(style.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read caption font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption font: %w", err)
	}
	return &captionRenderer{font: f, style: style}, nil
}

// draw renders text centered on the anchor. Shadow goes first, then the
// outline, then the fill.
func (c *captionRenderer) draw(dst *image.RGBA, text string, scale float64) error {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	size := math.Round(c.style.FontSize * scale)
	if size < 1 {
		return nil
	}

	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("%w: caption face: %v", ErrRender, err)
	}
	defer face.Close()

	anchor := c.style.Anchor.Mul(scale)
	_, advance := font.BoundString(face, text)
	m := face.Metrics()
	dotX := anchor.X - float64(advance)/64/2
	baseY := anchor.Y + float64(m.Ascent-m.Descent)/64/2

	strokeR := math.Round(c.style.StrokeWidth*scale) / 2
	blur := c.style.ShadowBlur * scale
	shadowOff := c.style.ShadowOffset.Mul(scale)
	pad := int(math.Ceil(strokeR+2*blur)) + 2

	bounds, _ := font.BoundString(face, text)
	area := image.Rect(
		int(math.Floor(dotX+float64(bounds.Min.X)/64))-pad,
		int(math.Floor(baseY+float64(bounds.Min.Y)/64))-pad,
		int(math.Ceil(dotX+float64(bounds.Max.X)/64))+pad,
		int(math.Ceil(baseY+float64(bounds.Max.Y)/64))+pad,
	)
	if area.Empty() {
		return nil
	}

	glyphs := image.NewAlpha(area)
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(math.Round(dotX * 64)), Y: fixed.Int26_6(math.Round(baseY * 64))},
	}
	d.DrawString(text)

	outline := glyphs
	if strokeR > 0 {
		outline = dilate(glyphs, strokeR)
	}

	if c.style.ShadowColor.A > 0 {
		shadow := blurAlpha(outline, blur)
		shift := image.Pt(int(math.Round(shadowOff.X)), int(math.Round(shadowOff.Y)))
		shadow.Rect = shadow.Rect.Add(shift)
		fillMask(dst, shadow, c.style.ShadowColor)
	}
	if strokeR > 0 && c.style.StrokeColor.A > 0 {
		fillMask(dst, outline, c.style.StrokeColor)
	}
	fillMask(dst, glyphs, c.style.FillColor)
	return nil
}

func fillMask(dst *image.RGBA, mask *image.Alpha, c color.NRGBA) {
	r := mask.Rect.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}

// dilate grows the coverage of src by radius pixels, which is how the text
// outline is produced.
func dilate(src *image.Alpha, radius float64) *image.Alpha {
	ri := int(math.Ceil(radius))
	var offsets []image.Point
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= radius*radius+0.25 {
				offsets = append(offsets, image.Pt(dx, dy))
			}
		}
	}

	r := src.Rect
	out := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var v uint8
			for _, o := range offsets {
				p := image.Pt(x+o.X, y+o.Y)
				if !p.In(r) {
					continue
				}
				if a := src.Pix[src.PixOffset(p.X, p.Y)]; a > v {
					v = a
					if v == 0xff {
						break
					}
				}
			}
			out.Pix[out.PixOffset(x, y)] = v
		}
	}
	return out
}

// blurAlpha returns a gaussian-blurred copy of src. blur follows the canvas
// shadowBlur convention, where sigma is half the blur value.
func blurAlpha(src *image.Alpha, blur float64) *image.Alpha {
	out := image.NewAlpha(src.Rect)
	if blur <= 0 {
		copy(out.Pix, src.Pix)
		return out
	}
	// imaging works on NRGBA and rebases the result to the origin
	blurred := imaging.Blur(src, blur/2)
	for y := 0; y < src.Rect.Dy(); y++ {
		for x := 0; x < src.Rect.Dx(); x++ {
			out.Pix[y*out.Stride+x] = blurred.Pix[y*blurred.Stride+x*4+3]
		}
	}
	return out
}
