package compositor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/processing"
)

const (
	// DefaultFileName is the suggested name of an exported composite
	DefaultFileName = "avatar_image.png"

	// MIMEType of every export
	MIMEType = "image/png"
)

// Blob is an encoded export
type Blob struct {
	Data     []byte
	MIME     string
	FileName string
	Width    int
	Height   int
}

// WriteTo writes the encoded PNG to w
func (b *Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}

// Save writes the blob into dir under its suggested file name, or to path if
// path does not name a directory. It returns the written path.
func (b *Blob) Save(path string) (string, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, b.FileName)
	}
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Export renders the scene on a fresh surface at the frame's native size and
// encodes it as PNG. The interactive preview is never touched, so exports are
// independent of viewport and zoom display.
func (e *Engine) Export(ctx context.Context, scene Scene) (*Blob, error) {
	if !scene.HasImage() {
		return nil, ErrMissingInput
	}
	if scene.Frame == nil {
		return nil, fmt.Errorf("%w: frame asset not loaded", ErrRender)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	size := scene.Frame.Size()
	surface, err := newSurface(size, e.opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	if err := e.draw(surface, scene, 1, e.opts.ExportFilter); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		err := processing.NewProcessor().EncodePNG(&buf, surface, e.opts.Compression)
		done <- result{data: buf.Bytes(), err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, r.err)
	}
	if len(r.data) == 0 {
		return nil, fmt.Errorf("%w: encoder produced no data", ErrEncode)
	}

	e.logger.Info("export complete",
		"width", size.Width,
		"height", size.Height,
		"bytes", len(r.data),
		"duration", time.Since(start))

	return &Blob{
		Data:     r.data,
		MIME:     MIMEType,
		FileName: e.opts.FileName,
		Width:    size.Width,
		Height:   size.Height,
	}, nil
}

// ExportSize is the pixel size Export produces for scene
func ExportSize(scene Scene) geometry.Size {
	if scene.Frame == nil {
		return geometry.Size{}
	}
	return scene.Frame.Size()
}
