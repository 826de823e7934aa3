// Package cropper turns an arbitrary upload into the square user image the
// compositor expects.
package cropper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/menta2k/frame-compositor/pkg/processing"
	"github.com/menta2k/frame-compositor/pkg/types"
	"github.com/menta2k/frame-compositor/pkg/vision"
)

// Strategy picks where the square is centered
type Strategy string

const (
	Center   Strategy = "center"
	Saliency Strategy = "saliency"
	Subject  Strategy = "subject"
)

// Zoom limits of the crop dialog
const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

// ParseStrategy validates a strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case Center, Saliency, Subject:
		return s, nil
	case "":
		return Center, nil
	}
	return "", fmt.Errorf("unknown crop strategy %q (want center, saliency or subject)", name)
}

// SubjectLocator finds the subject of a base64 encoded image.
// detection.Detector implements it.
type SubjectLocator interface {
	DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error)
}

// CropConfig holds configuration for square cropping
type CropConfig struct {
	Strategy Strategy
	// Zoom in [MinZoom, MaxZoom] shrinks the square around its center
	Zoom float64
	// OutputSize resamples the crop to OutputSize x OutputSize when > 0
	OutputSize int
	// MinSize rejects uploads whose shorter side is smaller
	MinSize int

	Model         string
	ModelMaxDim   int
	MinConfidence float64
}

// DefaultConfig returns a center crop at zoom 1
func DefaultConfig() CropConfig {
	return CropConfig{
		Strategy:      Center,
		Zoom:          1,
		MinSize:       16,
		ModelMaxDim:   768,
		MinConfidence: 0.3,
	}
}

// SquareCropper produces 1:1 crops
type SquareCropper struct {
	detector  *vision.SubjectDetector
	locator   SubjectLocator
	processor *processing.Processor
	config    CropConfig
	logger    *slog.Logger
}

// New creates a SquareCropper with default configuration
func New() *SquareCropper {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a SquareCropper with custom configuration
func NewWithConfig(config CropConfig) *SquareCropper {
	return &SquareCropper{
		detector:  vision.New(),
		processor: processing.NewProcessor(),
		config:    config,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetDetector replaces the saliency detector
func (c *SquareCropper) SetDetector(detector *vision.SubjectDetector) {
	c.detector = detector
}

// SetSubjectLocator enables the subject strategy
func (c *SquareCropper) SetSubjectLocator(locator SubjectLocator) {
	c.locator = locator
}

// SetLogger sets the logger; nil silences it
func (c *SquareCropper) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c.logger = logger
}

// Config returns the cropper configuration
func (c *SquareCropper) Config() CropConfig {
	return c.config
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image    *image.NRGBA
	Box      types.Box
	Strategy Strategy // strategy that produced the crop after any fallback
	Label    string
}

// Crop produces the square image using the configured strategy. The subject
// strategy falls back to saliency when the model is unavailable or unsure.
func (c *SquareCropper) Crop(ctx context.Context, img image.Image) (CropResult, error) {
	if err := c.check(img); err != nil {
		return CropResult{}, err
	}

	switch c.config.Strategy {
	case Subject:
		res, err := c.cropSubject(ctx, img)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return CropResult{}, ctx.Err()
		}
		c.logger.Warn("subject crop unavailable, using saliency", "err", err)
		return c.cropSaliency(img)
	case Saliency:
		return c.cropSaliency(img)
	default:
		return c.CropAround(img, 0.5, 0.5)
	}
}

// CropAround crops the square centered as close as possible to the normalized
// point (cx, cy)
func (c *SquareCropper) CropAround(img image.Image, cx, cy float64) (CropResult, error) {
	if err := c.check(img); err != nil {
		return CropResult{}, err
	}
	b := img.Bounds()
	box := c.processor.SquareCropBox(cx, cy, c.zoom(), b.Dx(), b.Dy())
	return c.finish(img, box, Center, "")
}

var errNoLocator = errors.New("no subject locator configured")

func (c *SquareCropper) cropSubject(ctx context.Context, img image.Image) (CropResult, error) {
	if c.locator == nil {
		return CropResult{}, errNoLocator
	}
	b64, err := c.processor.PrepareImageForModel(img, "jpg", c.config.ModelMaxDim, 85)
	if err != nil {
		return CropResult{}, fmt.Errorf("failed to prepare image: %w", err)
	}

	result, err := c.locator.DetectSubject(ctx, c.config.Model, b64)
	if err != nil {
		return CropResult{}, err
	}
	p := result.Primary
	if strings.EqualFold(p.Label, "none") || p.Confidence < c.config.MinConfidence {
		return CropResult{}, fmt.Errorf("no confident subject (label %q, confidence %.2f)", p.Label, p.Confidence)
	}

	b := img.Bounds()
	box := c.processor.SquareCropBox(p.Cx, p.Cy, c.zoom(), b.Dx(), b.Dy())
	c.logger.Debug("subject located", "label", p.Label, "confidence", p.Confidence, "cx", p.Cx, "cy", p.Cy)
	return c.finish(img, box, Subject, p.Label)
}

func (c *SquareCropper) cropSaliency(img image.Image) (CropResult, error) {
	region, err := c.detector.FindBestSquare(img, c.zoom())
	if err != nil {
		return CropResult{}, fmt.Errorf("failed to find salient region: %w", err)
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	box := types.Box{
		X: float64(region.X) / w,
		Y: float64(region.Y) / h,
		W: float64(region.Width) / w,
		H: float64(region.Height) / h,
	}
	return c.finish(img, box, Saliency, "")
}

func (c *SquareCropper) finish(img image.Image, box types.Box, s Strategy, label string) (CropResult, error) {
	out, err := c.processor.CropImageToBox(img, box, c.config.OutputSize)
	if err != nil {
		return CropResult{}, err
	}
	// Rounding can leave the crop a pixel off square
	if w, h := out.Bounds().Dx(), out.Bounds().Dy(); w != h {
		side := min(w, h)
		out, err = c.processor.CropImageToBox(out, types.Box{X: 0, Y: 0, W: float64(side) / float64(w), H: float64(side) / float64(h)}, 0)
		if err != nil {
			return CropResult{}, err
		}
	}
	c.logger.Debug("upload cropped", "strategy", string(s), "box", fmt.Sprintf("%+v", box), "side", out.Bounds().Dx())
	return CropResult{Image: out, Box: box, Strategy: s, Label: label}, nil
}

func (c *SquareCropper) check(img image.Image) error {
	minSize := max(1, c.config.MinSize)
	return c.processor.ValidateImage(img, minSize)
}

func (c *SquareCropper) zoom() float64 {
	z := c.config.Zoom
	if math.IsNaN(z) || z < MinZoom {
		return MinZoom
	}
	return math.Min(z, MaxZoom)
}
