// Package framer places a user's photo into a decorative frame and exports the
// composite as a lossless PNG at the frame's native resolution.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/frame-compositor"
//	)
//
//	func main() {
//		ctx := context.Background()
//		opts := framer.DefaultOptions()
//		opts.Frame = "frame.png"
//
//		studio, err := framer.New(ctx, opts)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		up, err := studio.LoadUpload(ctx, "me.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		blob, err := studio.Export(ctx, up.Image(), opts.Initial, "")
//		if err != nil {
//			log.Fatal(err)
//		}
//		if _, err := blob.Save("."); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package ties together the building blocks in pkg/:
//
//   - frame: asynchronous frame loading
//   - upload, cropper, vision, detection: turning an upload into a square photo
//   - placement: the draggable, zoomable square and its limits
//   - compositor: masked drawing, captions, preview and PNG export
//   - tui: the interactive terminal editor
package framer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/menta2k/frame-compositor/pkg/compositor"
	"github.com/menta2k/frame-compositor/pkg/cropper"
	"github.com/menta2k/frame-compositor/pkg/frame"
	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/placement"
	"github.com/menta2k/frame-compositor/pkg/tui"
	"github.com/menta2k/frame-compositor/pkg/upload"
)

// Version of the frame compositor
const Version = "1.0.0"

// Options configures a Studio
type Options struct {
	// Frame is a path or http(s) URL of the frame image
	Frame string

	Compositor compositor.Options
	Crop       cropper.CropConfig
	// Backend and BackendURL select the vision model used by the subject
	// crop strategy (see upload.NewVisionClient)
	Backend    string
	BackendURL string

	Initial placement.Settings
	Limits  placement.Limits

	Logger *slog.Logger
}

// DefaultOptions returns the avatar layout with a center crop
func DefaultOptions() Options {
	return Options{
		Compositor: compositor.DefaultOptions(),
		Crop:       cropper.DefaultConfig(),
		Backend:    upload.BackendNone,
		Initial:    placement.Settings{X: 275, Y: 205, Size: 1444},
		Limits:     placement.DefaultLimits(),
	}
}

// Studio owns the frame, the rendering engine and the upload pipeline
type Studio struct {
	engine  *compositor.Engine
	intake  *upload.Intake
	loader  *frame.Loader
	initial placement.Settings
	limits  placement.Limits
	logger  *slog.Logger
}

// New validates the options and starts loading the frame in the background
func New(ctx context.Context, opts Options) (*Studio, error) {
	if opts.Frame == "" {
		return nil, fmt.Errorf("no frame image configured")
	}
	if err := opts.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid zoom limits: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	copts := opts.Compositor
	copts.Logger = logger
	engine, err := compositor.New(copts)
	if err != nil {
		return nil, err
	}

	intake, err := upload.NewWithBackend(opts.Crop, opts.Backend, opts.BackendURL)
	if err != nil {
		return nil, err
	}
	intake.SetLogger(logger)

	return &Studio{
		engine:  engine,
		intake:  intake,
		loader:  frame.LoadAsync(ctx, opts.Frame, logger),
		initial: opts.Initial,
		limits:  opts.Limits,
		logger:  logger,
	}, nil
}

// Engine returns the compositing engine
func (s *Studio) Engine() *compositor.Engine {
	return s.engine
}

// Intake returns the upload pipeline
func (s *Studio) Intake() *upload.Intake {
	return s.intake
}

// Frame waits for the frame to finish loading
func (s *Studio) Frame(ctx context.Context) (*frame.Asset, error) {
	return s.loader.Wait(ctx)
}

// LoadUpload reads and square-crops a photo from a path or URL
func (s *Studio) LoadUpload(ctx context.Context, source string) (*upload.Upload, error) {
	return s.intake.Load(ctx, source)
}

// Controller returns a placement controller for the loaded frame, starting at
// the configured default placement
func (s *Studio) Controller(ctx context.Context) (*placement.Controller, error) {
	asset, err := s.Frame(ctx)
	if err != nil {
		return nil, err
	}
	return placement.NewController(asset.Size(), s.initial, s.limits), nil
}

// Place clamps settings to the frame and the zoom limits
func (s *Studio) Place(ctx context.Context, settings placement.Settings) (placement.Settings, error) {
	ctrl, err := s.Controller(ctx)
	if err != nil {
		return placement.Settings{}, err
	}
	return ctrl.Replace(settings).Settings, nil
}

// Export renders the photo into the frame at native resolution and encodes it
func (s *Studio) Export(ctx context.Context, user image.Image, settings placement.Settings, caption string) (*compositor.Blob, error) {
	scene, err := s.scene(ctx, user, settings, caption)
	if err != nil {
		return nil, err
	}
	return s.engine.Export(ctx, scene)
}

// Preview renders the composite at the given width; height follows the
// frame's aspect ratio
func (s *Studio) Preview(ctx context.Context, user image.Image, settings placement.Settings, caption string, width int) (*image.RGBA, error) {
	scene, err := s.scene(ctx, user, settings, caption)
	if err != nil {
		return nil, err
	}
	size := scene.Frame.Size()
	target := geometry.Size{
		Width:  width,
		Height: int(math.Round(float64(width) * float64(size.Height) / float64(size.Width))),
	}
	return s.engine.Render(scene, target)
}

// Editor returns the interactive editor model. The frame may still be loading.
func (s *Studio) Editor(user image.Image, opts tui.Options) tui.Model {
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	return tui.New(s.engine, s.loader, user, s.initial, s.limits, opts)
}

func (s *Studio) scene(ctx context.Context, user image.Image, settings placement.Settings, caption string) (compositor.Scene, error) {
	asset, err := s.Frame(ctx)
	if err != nil {
		return compositor.Scene{}, err
	}
	return compositor.Scene{
		Frame:        asset,
		UserImage:    user,
		HasUserImage: user != nil,
		Placement:    placement.Clamp(settings, asset.Size(), s.limits),
		Caption:      caption,
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
