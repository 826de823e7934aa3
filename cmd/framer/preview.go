package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/menta2k/frame-compositor/internal/config"
	"github.com/menta2k/frame-compositor/internal/utils"
	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/processing"
	"github.com/menta2k/frame-compositor/pkg/tui"
)

// previewFileName is written into the output directory
const previewFileName = "preview.png"

func runPreview(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("preview", stderr)
	c := addCommon(fs)
	in := fs.String("in", "", "photo path or URL (optional)")
	width := fs.Int("width", 0, "preview width in pixels (default from config, or the terminal with -ansi)")
	debug := fs.Bool("debug", false, "draw the placement square, hit circle and center")
	ansi := fs.Bool("ansi", false, "print the preview to the terminal instead of writing "+previewFileName)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := c.logger(stderr)
	cfg, studio, err := c.studio(ctx, logger)
	if err != nil {
		return err
	}
	asset, err := studio.Frame(ctx)
	if err != nil {
		return err
	}

	var user image.Image
	if *in != "" {
		up, err := studio.LoadUpload(ctx, *in)
		if err != nil {
			return err
		}
		user = up.Image()
	}

	w := *width
	if w <= 0 {
		w = cfg.Preview.Width
		if *ansi {
			if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 {
				vp := geometry.Viewport{Width: cols}
				w = geometry.FitWidth(vp, asset.Size(), cfg.Preview.Breakpoint, cfg.Preview.WideFraction, cfg.Preview.NarrowFraction).Width
			}
		}
	}

	settings, err := studio.Place(ctx, cfg.InitialPlacement())
	if err != nil {
		return err
	}
	img, err := studio.Preview(ctx, user, settings, cfg.CaptionText(), w)
	if err != nil {
		return err
	}

	var out image.Image = img
	if *debug {
		scale := float64(geometry.ScaleFor(img.Bounds().Dx(), asset.Width()))
		rect := image.Rect(
			int(math.Round(settings.X*scale)),
			int(math.Round(settings.Y*scale)),
			int(math.Round((settings.X+settings.Size)*scale)),
			int(math.Round((settings.Y+settings.Size)*scale)),
		)
		out = processing.NewProcessor().CreatePlacementOverlay(img, rect)
	}

	if *ansi {
		bg, err := config.ParseHexColor(cfg.Preview.Background)
		if err != nil {
			return err
		}
		for _, line := range tui.RenderHalfBlock(out, bg) {
			fmt.Fprintln(stdout, line)
		}
		return nil
	}

	if err := utils.EnsureDir(cfg.Export.OutputDir); err != nil {
		return err
	}
	path := filepath.Join(cfg.Export.OutputDir, previewFileName)
	if err := processing.NewProcessor().SavePNG(out, path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	logger.Info("wrote preview", "path", path, "width", out.Bounds().Dx(), "height", out.Bounds().Dy(), "placement", settings.String())
	return nil
}
