package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	framer "github.com/menta2k/frame-compositor"
	"github.com/menta2k/frame-compositor/internal/config"
	"github.com/menta2k/frame-compositor/internal/log"
	"github.com/menta2k/frame-compositor/internal/utils"
)

const usage = `framer composites a photo into a decorative frame.

Usage:
  framer export  -in PHOTO [-frame F] [-x X -y Y -size S | -zoom-percent P] [-caption T] [-out DIR]
  framer batch   [-frame F] [-out DIR] [-jobs N] PHOTO|DIR...
  framer edit    [-in PHOTO] [-frame F] [-log FILE]
  framer preview [-in PHOTO] [-frame F] [-width W] [-debug] [-ansi]
  framer config  [-write PATH]
  framer version

Common flags: -config PATH, -preset avatar|badge, -verbose
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Stderr().Error("framer failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "export":
		return runExport(ctx, rest, stderr)
	case "batch":
		return runBatch(ctx, rest, stderr)
	case "edit":
		return runEdit(ctx, rest, stdout, stderr)
	case "preview":
		return runPreview(ctx, rest, stdout, stderr)
	case "config":
		return runConfig(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "framer %s\n", framer.GetVersion())
		return nil
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

// common holds the flags every subcommand accepts
type common struct {
	configPath string
	preset     string
	verbose    bool
	framePath  string
	outDir     string
	caption    string
	crop       string
}

func addCommon(fs *flag.FlagSet) *common {
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "config file (default "+config.GetConfigPath()+" if present)")
	fs.StringVar(&c.preset, "preset", "avatar", "built-in layout: "+strings.Join(config.Presets(), "|"))
	fs.BoolVar(&c.verbose, "verbose", false, "debug logging")
	fs.StringVar(&c.framePath, "frame", "", "frame image path or URL (overrides config)")
	fs.StringVar(&c.outDir, "out", "", "output directory (overrides config)")
	fs.StringVar(&c.caption, "caption", "", "caption text; enables the caption")
	fs.StringVar(&c.crop, "crop", "", "upload crop strategy: center|saliency|subject (overrides config)")
	return c
}

// load builds the effective configuration: preset, then config file, then flags
func (c *common) load() (*config.Config, error) {
	cfg, err := config.Preset(c.preset)
	if err != nil {
		return nil, err
	}

	path := c.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		if cfg, err = config.LoadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if c.framePath != "" {
		cfg.Frame.Path = c.framePath
	}
	if c.outDir != "" {
		cfg.Export.OutputDir = c.outDir
	}
	if c.caption != "" {
		cfg.Caption.Enabled = true
		cfg.Caption.Text = c.caption
	}
	if c.crop != "" {
		cfg.Upload.Strategy = c.crop
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// studio loads the configuration and starts the frame loading
func (c *common) studio(ctx context.Context, logger *slog.Logger) (*config.Config, *framer.Studio, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.StudioOptions(logger)
	if err != nil {
		return nil, nil, err
	}
	s, err := framer.New(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, s, nil
}

func (c *common) logger(w io.Writer) *slog.Logger {
	log.SetVerbose(c.verbose)
	return log.New(w)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
