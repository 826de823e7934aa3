package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	framer "github.com/menta2k/frame-compositor"
	"github.com/menta2k/frame-compositor/internal/config"
	"github.com/menta2k/frame-compositor/internal/utils"
	"github.com/menta2k/frame-compositor/pkg/placement"
)

func runExport(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	c := addCommon(fs)
	in := fs.String("in", "", "photo path or URL")
	x := fs.Float64("x", 0, "placement x in frame pixels")
	y := fs.Float64("y", 0, "placement y in frame pixels")
	size := fs.Float64("size", 0, "placement size in frame pixels")
	zoom := fs.Float64("zoom-percent", 0, "placement size as a percentage of the default size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("export needs -in: %w", errUsage)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger := c.logger(stderr)
	cfg, studio, err := c.studio(ctx, logger)
	if err != nil {
		return err
	}

	ctrl, err := studio.Controller(ctx)
	if err != nil {
		return err
	}
	s := ctrl.Settings()
	if set["x"] {
		s.X = *x
	}
	if set["y"] {
		s.Y = *y
	}
	if set["size"] {
		s.Size = *size
	}
	u := ctrl.Replace(s)
	if set["zoom-percent"] {
		u = ctrl.SetZoomPercent(*zoom)
	}

	if err := utils.EnsureDir(cfg.Export.OutputDir); err != nil {
		return err
	}
	path, err := exportOne(ctx, studio, cfg, logger, *in, u.Settings, cfg.Export.OutputDir)
	if err != nil {
		return err
	}
	logger.Info("exported", "path", path, "placement", u.Settings.String())
	return nil
}

func runBatch(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("batch", stderr)
	c := addCommon(fs)
	jobs := fs.Int("jobs", 0, "parallel exports (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs, err := utils.ExpandInputs(fs.Args())
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("batch needs at least one photo: %w", errUsage)
	}

	logger := c.logger(stderr)
	cfg, studio, err := c.studio(ctx, logger)
	if err != nil {
		return err
	}
	if _, err := studio.Frame(ctx); err != nil {
		return err
	}

	limit := cfg.Export.Jobs
	if *jobs > 0 {
		limit = *jobs
	}
	outDir := cfg.Export.OutputDir
	if err := utils.EnsureDir(outDir); err != nil {
		return err
	}
	suffix := strings.TrimSuffix(cfg.Export.FileName, filepath.Ext(cfg.Export.FileName))
	initial := cfg.InitialPlacement()

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, input := range inputs {
		g.Go(func() error {
			dst := filepath.Join(outDir, utils.OutputName(input, suffix))
			if _, err := exportOne(gctx, studio, cfg, logger, input, initial, dst); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logger.Error("export failed", "input", input, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d exports failed", n, len(inputs))
	}
	logger.Info("batch complete", "count", len(inputs), "dir", outDir, "jobs", limit)
	return nil
}

// exportOne loads a photo, exports it at settings and writes it to dst (a
// directory or file path). It returns the written path.
func exportOne(ctx context.Context, studio *framer.Studio, cfg *config.Config, logger *slog.Logger, input string, settings placement.Settings, dst string) (string, error) {
	up, err := studio.LoadUpload(ctx, input)
	if err != nil {
		return "", err
	}
	blob, err := studio.Export(ctx, up.Image(), settings, cfg.CaptionText())
	if err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}
	path, err := blob.Save(dst)
	if err != nil {
		return "", err
	}
	logger.Debug("wrote composite",
		"input", input, "path", path,
		"size", utils.FormatFileSize(int64(len(blob.Data))),
		"width", blob.Width, "height", blob.Height,
		"crop", string(up.Crop.Strategy))
	return path, nil
}
