// Package compositor renders a user image into a frame: the masked image is
// drawn first, the frame on top, then an optional caption. The same drawing
// routine produces both scaled previews and native-resolution exports.
package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"

	"github.com/menta2k/frame-compositor/pkg/frame"
	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/placement"
)

// Options configures an Engine
type Options struct {
	Mask Shape

	// Caption enables name text when non-nil
	Caption *CaptionStyle

	// PreviewFilter and ExportFilter name the resample filters
	// (see processing.ResampleFilter)
	PreviewFilter string
	ExportFilter  string

	Compression png.CompressionLevel
	FileName    string
	MaxPixels   int

	Logger *slog.Logger
}

// DefaultOptions returns circle-masked rendering without a caption
func DefaultOptions() Options {
	return Options{
		Mask:          Circle,
		PreviewFilter: "linear",
		ExportFilter:  "lanczos",
		Compression:   png.DefaultCompression,
		FileName:      DefaultFileName,
		MaxPixels:     DefaultMaxPixels,
	}
}

// Scene is everything that varies between renders
type Scene struct {
	Frame        *frame.Asset
	UserImage    image.Image
	HasUserImage bool
	Placement    placement.Settings
	Caption      string
}

// HasImage reports whether a user image is present and flagged as loaded
func (s Scene) HasImage() bool {
	return s.HasUserImage && s.UserImage != nil
}

// Engine draws scenes. It holds no per-render state and may be shared.
type Engine struct {
	opts    Options
	caption *captionRenderer
	logger  *slog.Logger
}

// New creates an engine. It fails only when a caption font cannot be loaded.
func New(opts Options) (*Engine, error) {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{opts: opts, logger: logger}
	if opts.Caption != nil {
		c, err := newCaptionRenderer(*opts.Caption)
		if err != nil {
			return nil, err
		}
		e.caption = c
	}
	return e, nil
}

// Options returns the engine's configuration
func (e *Engine) Options() Options {
	return e.opts
}

// RenderPreview redraws canvas at target size. With no frame it does nothing.
// The canvas is left untouched when target is unusable.
func (e *Engine) RenderPreview(canvas *Canvas, scene Scene, target geometry.Size) error {
	if scene.Frame == nil {
		return nil
	}
	if err := canvas.Resize(target, e.opts.MaxPixels); err != nil {
		return err
	}
	canvas.Clear()

	scale := geometry.ScaleFor(target.Width, scene.Frame.Width())
	return e.draw(canvas.img, scene, scale, e.opts.PreviewFilter)
}

// Render draws the scene into a new image of target size
func (e *Engine) Render(scene Scene, target geometry.Size) (*image.RGBA, error) {
	if scene.Frame == nil {
		return nil, fmt.Errorf("%w: frame asset not loaded", ErrRender)
	}
	c := NewCanvas()
	if err := e.RenderPreview(c, scene, target); err != nil {
		return nil, err
	}
	return c.img, nil
}

// draw composites the scene onto dst at the given scale. dst must be clear.
func (e *Engine) draw(dst *image.RGBA, scene Scene, scale geometry.Scale, filter string) error {
	if !scale.Valid() {
		return fmt.Errorf("%w: invalid scale %v", ErrRender, float64(scale))
	}
	k := float64(scale)

	if scene.HasImage() {
		p := scene.Placement
		DrawMasked(dst, scene.UserImage, p.X*k, p.Y*k, p.Size*k, e.opts.Mask, filter)
	}

	fw := max(1, int(math.Round(float64(scene.Frame.Width())*k)))
	fh := max(1, int(math.Round(float64(scene.Frame.Height())*k)))
	overlay := scene.Frame.Scaled(fw, fh, filter)
	draw.Draw(dst, image.Rect(0, 0, fw, fh), overlay, overlay.Bounds().Min, draw.Over)

	if e.caption != nil && scene.Caption != "" {
		if err := e.caption.draw(dst, scene.Caption, k); err != nil {
			return err
		}
	}

	e.logger.Debug("scene drawn",
		"width", dst.Bounds().Dx(),
		"height", dst.Bounds().Dy(),
		"scale", k,
		"placement", scene.Placement.String(),
		"user_image", scene.HasImage())
	return nil
}
