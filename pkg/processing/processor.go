package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/frame-compositor/pkg/types"
)

// MaxDownloadSize caps images fetched over http (32 MB)
const MaxDownloadSize = 32 << 20

// Processor handles image loading, square cropping and PNG encoding
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewProcessorWithClient creates a processor that downloads with the given client
func NewProcessorWithClient(client *http.Client) *Processor {
	return &Processor{client: client}
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "frame-compositor/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) > MaxDownloadSize {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxDownloadSize)
	}

	return p.DecodeImage(imageData)
}

// LoadImage loads an image from a file path. EXIF orientation is applied so
// phone photos come out upright.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("image: unknown format for %s", path)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// LoadImageFromReader decodes an image from a reader
func (p *Processor) LoadImageFromReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.DecodeImage(data)
}

// DecodeImage decodes image bytes with WebP support
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// ValidateImage checks that an upload has usable dimensions
func (p *Processor) ValidateImage(img image.Image, minSize int) error {
	if img == nil {
		return fmt.Errorf("no image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image has no pixels")
	}
	if b.Dx() < minSize || b.Dy() < minSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)", b.Dx(), b.Dy(), minSize)
	}
	return nil
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SquareCropBox calculates the largest square crop centered as close as
// possible to (centerX, centerY), both normalized. zoom >= 1 shrinks the
// square the way the upload crop dialog's zoom slider does (zoom 2 keeps half
// the side).
func (p *Processor) SquareCropBox(centerX, centerY, zoom float64, imgWidth, imgHeight int) types.Box {
	if zoom < 1 || math.IsNaN(zoom) {
		zoom = 1
	}
	fw, fh := float64(imgWidth), float64(imgHeight)

	side := math.Min(fw, fh) / zoom

	cx := clamp(centerX, 0, 1) * fw
	cy := clamp(centerY, 0, 1) * fh

	x0 := clamp(cx-side/2, 0, fw-side)
	y0 := clamp(cy-side/2, 0, fh-side)

	return types.Box{
		X: x0 / fw,
		Y: y0 / fh,
		W: side / fw,
		H: side / fh,
	}
}

// CropImageToBox crops an image to the normalized box. When side > 0 the
// result is resampled to side x side.
func (p *Processor) CropImageToBox(img image.Image, box types.Box, side int) (*image.NRGBA, error) {
	bounds := img.Bounds()
	x0, y0, x1, y1 := boxToPixels(box, bounds.Dx(), bounds.Dy())

	rect := image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}

	cropped := imaging.Crop(img, rect)

	if side > 0 {
		cropped = imaging.Fill(cropped, side, side, imaging.Center, imaging.Lanczos)
	}

	return cropped, nil
}

// EncodePNG writes img as a lossless PNG
func (p *Processor) EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
}

// SavePNG writes img to path as PNG
func (p *Processor) SavePNG(img image.Image, path string) error {
	return imaging.Save(img, path, imaging.PNGCompressionLevel(png.DefaultCompression))
}

// CreatePlacementOverlay draws the placement's bounding square, its circular
// hit region and its center onto a copy of img. rect and the circle are in
// img's pixel space.
func (p *Processor) CreatePlacementOverlay(img image.Image, rect image.Rectangle) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255} // bounding square
	green := color.NRGBA{0, 255, 0, 255}  // hit region
	red := color.NRGBA{255, 0, 0, 255}    // center
	stroke := int(math.Max(1, 0.004*float64(minInt(w, h))))
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))

	for s := 0; s < stroke; s++ {
		drawHLine(nrgba, rect.Min.Y+s, rect.Min.X, rect.Max.X, gold)
		drawHLine(nrgba, rect.Max.Y-1-s, rect.Min.X, rect.Max.X, gold)
		drawVLine(nrgba, rect.Min.X+s, rect.Min.Y, rect.Max.Y, gold)
		drawVLine(nrgba, rect.Max.X-1-s, rect.Min.Y, rect.Max.Y, gold)
	}

	cx := float64(rect.Min.X+rect.Max.X) / 2
	cy := float64(rect.Min.Y+rect.Max.Y) / 2
	r := float64(rect.Dx()) / 2
	drawCircle(nrgba, cx, cy, r, green)

	px, py := int(cx), int(cy)
	drawHLine(nrgba, py, px-cross, px+cross, red)
	drawVLine(nrgba, px, py-cross, py+cross, red)

	return nrgba
}

// ResampleFilter maps a filter name to an imaging filter. Unknown names fall
// back to Lanczos.
func ResampleFilter(name string) imaging.ResampleFilter {
	switch strings.ToLower(name) {
	case "nearest":
		return imaging.NearestNeighbor
	case "box":
		return imaging.Box
	case "linear":
		return imaging.Linear
	case "catmullrom":
		return imaging.CatmullRom
	case "mitchell":
		return imaging.MitchellNetravali
	default:
		return imaging.Lanczos
	}
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func boxToPixels(box types.Box, w, h int) (int, int, int, int) {
	x0 := int(clamp(box.X, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(box.Y, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp(box.X+box.W, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp(box.Y+box.H, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{x, y}).In(img.Rect) {
		return
	}
	i := img.PixOffset(x, y)
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x < x1; x++ {
		setPixel(img, x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y < y1; y++ {
		setPixel(img, x, y, c)
	}
}

func drawCircle(img *image.NRGBA, cx, cy, r float64, c color.NRGBA) {
	if r <= 0 {
		return
	}
	steps := int(math.Max(16, 2*math.Pi*r))
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(img, int(cx+r*math.Cos(a)), int(cy+r*math.Sin(a)), c)
	}
}
