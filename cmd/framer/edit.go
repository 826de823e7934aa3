package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/menta2k/frame-compositor/internal/log"
	"github.com/menta2k/frame-compositor/internal/utils"
	"github.com/menta2k/frame-compositor/pkg/tui"
)

func runEdit(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("edit", stderr)
	c := addCommon(fs)
	in := fs.String("in", "", "photo path or URL (optional)")
	logFile := fs.String("log", "", "write logs to this file while the editor runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("edit needs an interactive terminal; use export instead")
	}

	// The editor owns the screen, so logs go to a file or nowhere
	log.SetVerbose(c.verbose)
	logger := log.Nop()
	if *logFile != "" {
		l, closer, err := log.ToFile(*logFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = l
	}

	cfg, studio, err := c.studio(ctx, logger)
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

	opts, err := cfg.EditorOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger
	if err := utils.EnsureDir(opts.OutputDir); err != nil {
		return err
	}

	final, err := tui.Run(ctx, studio.Editor(user, opts), os.Stdin, stdout)
	if err != nil {
		return err
	}
	s := final.Settings()
	fmt.Fprintf(stdout, "placement: -x %.0f -y %.0f -size %.0f\n", s.X, s.Y, s.Size)
	return nil
}
