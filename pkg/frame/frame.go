// Package frame loads and holds the decorative frame image that every
// composite is drawn into.
package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/processing"
)

// ErrAssetLoad is returned when the frame image cannot be loaded
var ErrAssetLoad = errors.New("frame asset load failed")

// Asset is an immutable frame image. Its native pixel size defines the
// coordinate system of placements. An Asset is safe for concurrent use.
type Asset struct {
	img *image.NRGBA

	mu     sync.Mutex
	scaled *image.NRGBA
	filter string
}

// New wraps an already decoded image as a frame asset
func New(img image.Image) (*Asset, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrAssetLoad)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrAssetLoad, b.Dx(), b.Dy())
	}
	return &Asset{img: imaging.Clone(img)}, nil
}

// Load reads a frame from a file path or http(s) URL
func Load(source string) (*Asset, error) {
	img, err := processing.NewProcessor().LoadImageSmart(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLoad, source, err)
	}
	return New(img)
}

// LoadFromReader decodes a frame from a reader
func LoadFromReader(r io.Reader) (*Asset, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}
	return New(img)
}

// Width is the native width in pixels
func (a *Asset) Width() int {
	return a.img.Bounds().Dx()
}

// Height is the native height in pixels
func (a *Asset) Height() int {
	return a.img.Bounds().Dy()
}

// Size is the native pixel size
func (a *Asset) Size() geometry.Size {
	return geometry.Size{Width: a.Width(), Height: a.Height()}
}

// Image returns the native-resolution frame. Callers must not modify it.
func (a *Asset) Image() *image.NRGBA {
	return a.img
}

// Scaled returns the frame resampled to w x h with the named filter (see
// processing.ResampleFilter). The native image is returned as-is when the size
// matches. The most recent scaled copy is memoized since interactive previews
// redraw at the same size many times.
func (a *Asset) Scaled(w, h int, filter string) *image.NRGBA {
	if w == a.Width() && h == a.Height() {
		return a.img
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scaled != nil && a.filter == filter && a.scaled.Bounds().Dx() == w && a.scaled.Bounds().Dy() == h {
		return a.scaled
	}
	a.scaled = imaging.Resize(a.img, w, h, processing.ResampleFilter(filter))
	a.filter = filter
	return a.scaled
}

// Loader loads a frame in the background. The zero value is not usable; use
// LoadAsync.
type Loader struct {
	source string
	done   chan struct{}
	asset  *Asset
	err    error
}

// LoadAsync starts loading the frame and returns immediately
func LoadAsync(ctx context.Context, source string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{source: source, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		if err := ctx.Err(); err != nil {
			l.err = fmt.Errorf("%w: %v", ErrAssetLoad, err)
			return
		}
		l.asset, l.err = Load(source)
		if l.err != nil {
			logger.Error("frame load failed", "source", source, "err", l.err)
			return
		}
		logger.Debug("frame loaded", "source", source, "width", l.asset.Width(), "height", l.asset.Height())
	}()
	return l
}

// Done is closed once loading finished, successfully or not
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Ready reports whether the frame loaded successfully
func (l *Loader) Ready() bool {
	select {
	case <-l.done:
		return l.err == nil
	default:
		return false
	}
}

// Asset returns the loaded frame, or nil while loading or after a failure
func (l *Loader) Asset() *Asset {
	if !l.Ready() {
		return nil
	}
	return l.asset
}

// Wait blocks until the frame is loaded or ctx is done
func (l *Loader) Wait(ctx context.Context) (*Asset, error) {
	select {
	case <-l.done:
		return l.asset, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
