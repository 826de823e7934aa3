// Package upload turns a photo supplied by the user into the square user
// image the compositor draws.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/menta2k/frame-compositor/pkg/client"
	"github.com/menta2k/frame-compositor/pkg/cropper"
	"github.com/menta2k/frame-compositor/pkg/detection"
	"github.com/menta2k/frame-compositor/pkg/llamacpp"
	"github.com/menta2k/frame-compositor/pkg/ollama"
	"github.com/menta2k/frame-compositor/pkg/processing"
)

// Vision backends for the subject crop strategy
const (
	BackendNone     = "none"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Info contains basic upload metadata
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// GetInfo returns basic information about an image
func GetInfo(img image.Image) Info {
	b := img.Bounds()
	info := Info{Width: b.Dx(), Height: b.Dy(), Area: b.Dx() * b.Dy()}
	if info.Height > 0 {
		info.AspectRatio = float64(info.Width) / float64(info.Height)
	}
	return info
}

// Upload is a processed user image
type Upload struct {
	Source   string
	Original Info
	Crop     cropper.CropResult
}

// Image returns the square user image
func (u *Upload) Image() *image.NRGBA {
	return u.Crop.Image
}

// Intake loads and square-crops uploads
type Intake struct {
	processor *processing.Processor
	cropper   *cropper.SquareCropper
	logger    *slog.Logger
}

// New creates an intake with the given crop configuration and no vision backend
func New(cfg cropper.CropConfig) *Intake {
	return &Intake{
		processor: processing.NewProcessor(),
		cropper:   cropper.NewWithConfig(cfg),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// NewWithBackend creates an intake whose subject strategy asks the named vision
// backend. BackendNone (or "") leaves the subject strategy falling back to
// saliency.
func NewWithBackend(cfg cropper.CropConfig, backend, url string) (*Intake, error) {
	in := New(cfg)
	vc, err := NewVisionClient(backend, url)
	if err != nil {
		return nil, err
	}
	if vc != nil {
		in.cropper.SetSubjectLocator(detection.NewDetector(vc))
	}
	return in, nil
}

// NewVisionClient builds the client for a backend name. It returns nil, nil
// for BackendNone.
func NewVisionClient(backend, url string) (client.VisionClient, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendOllama:
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case BackendLlamaCpp:
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q (use none, ollama or llamacpp)", backend)
}

// SetLocator replaces the subject locator
func (in *Intake) SetLocator(locator cropper.SubjectLocator) {
	in.cropper.SetSubjectLocator(locator)
}

// SetLogger sets the logger; nil silences it
func (in *Intake) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	in.logger = logger
	in.cropper.SetLogger(logger)
}

// Load reads an upload from a file path or http(s) URL
func (in *Intake) Load(ctx context.Context, source string) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := in.processor.LoadImageSmart(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}
	u, err := in.FromImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	u.Source = source
	return u, nil
}

// FromReader decodes an upload from r
func (in *Intake) FromReader(ctx context.Context, r io.Reader) (*Upload, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, processing.MaxDownloadSize+1)); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if buf.Len() > processing.MaxDownloadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", processing.MaxDownloadSize)
	}
	img, err := in.processor.DecodeImage(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return in.FromImage(ctx, img)
}

// FromImage square-crops an already decoded image
func (in *Intake) FromImage(ctx context.Context, img image.Image) (*Upload, error) {
	res, err := in.cropper.Crop(ctx, img)
	if err != nil {
		return nil, err
	}
	info := GetInfo(img)
	in.logger.Info("upload ready",
		"width", info.Width, "height", info.Height,
		"strategy", string(res.Strategy), "side", res.Image.Bounds().Dx())
	return &Upload{Original: info, Crop: res}, nil
}

// Recrop crops img again around the normalized point (cx, cy), as when the
// user moves the crop square by hand
func (in *Intake) Recrop(img image.Image, cx, cy float64) (*Upload, error) {
	res, err := in.cropper.CropAround(img, cx, cy)
	if err != nil {
		return nil, err
	}
	return &Upload{Original: GetInfo(img), Crop: res}, nil
}
