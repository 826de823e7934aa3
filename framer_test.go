package framer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/frame-compositor/pkg/compositor"
	"github.com/menta2k/frame-compositor/pkg/frame"
	"github.com/menta2k/frame-compositor/pkg/placement"
)

// writeFrame writes a 400x400 frame with an opaque border and a clear middle
func writeFrame(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			if x < 40 || y < 40 || x >= 360 || y >= 360 {
				img.Set(x, y, color.NRGBA{200, 0, 200, 255})
			}
		}
	}
	return writePNG(t, "frame.png", img)
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// createPhoto creates a landscape photo, green on the left and red on the right
func createPhoto(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{0, 255, 0, 255}
			if x >= width/2 {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func testOptions(framePath string) Options {
	opts := DefaultOptions()
	opts.Frame = framePath
	opts.Initial = placement.Settings{X: 100, Y: 100, Size: 200}
	opts.Limits = placement.Limits{MinSize: 100, MaxSize: 400, DefaultSize: 200, MinPercent: 50, MaxPercent: 200}
	return opts
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(context.Background(), DefaultOptions()); err == nil {
		t.Error("Expected error without a frame")
	}

	opts := testOptions("frame.png")
	opts.Limits.MaxSize = 10
	if _, err := New(context.Background(), opts); err == nil {
		t.Error("Expected error for inverted limits")
	}

	opts = testOptions("frame.png")
	opts.Backend = "carrier-pigeon"
	if _, err := New(context.Background(), opts); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestUploadToExport(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(writeFrame(t))
	studio, err := New(ctx, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	up, err := studio.LoadUpload(ctx, writePNG(t, "photo.png", createPhoto(300, 200)))
	if err != nil {
		t.Fatalf("LoadUpload failed: %v", err)
	}
	if b := up.Image().Bounds(); b.Dx() != b.Dy() {
		t.Fatalf("upload not square: %v", b)
	}

	blob, err := studio.Export(ctx, up.Image(), opts.Initial, "")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if blob.Width != 400 || blob.Height != 400 {
		t.Errorf("Expected 400x400 export, got %dx%d", blob.Width, blob.Height)
	}

	img, err := png.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		t.Fatalf("export is not a PNG: %v", err)
	}
	// Center crop of the photo: green left half, red right half
	if r, g, _, _ := img.At(150, 200).RGBA(); g>>8 != 255 || r != 0 {
		t.Errorf("Expected green left of center, got %v", img.At(150, 200))
	}
	if r, g, _, _ := img.At(250, 200).RGBA(); r>>8 != 255 || g != 0 {
		t.Errorf("Expected red right of center, got %v", img.At(250, 200))
	}
	// Frame border drawn on top
	if r, _, b, _ := img.At(10, 200).RGBA(); r>>8 != 200 || b>>8 != 200 {
		t.Errorf("Expected frame border, got %v", img.At(10, 200))
	}
}

func TestExportWithoutPhoto(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(writeFrame(t))
	studio, err := New(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := studio.Export(ctx, nil, opts.Initial, ""); !errors.Is(err, compositor.ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput, got %v", err)
	}
}

func TestMissingFrame(t *testing.T) {
	ctx := context.Background()
	studio, err := New(ctx, testOptions(filepath.Join(t.TempDir(), "nope.png")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := studio.Export(ctx, createPhoto(10, 10), placement.Settings{Size: 200}, ""); !errors.Is(err, frame.ErrAssetLoad) {
		t.Errorf("Expected ErrAssetLoad, got %v", err)
	}
}

func TestPreviewSize(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(writeFrame(t))
	studio, err := New(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	img, err := studio.Preview(ctx, createPhoto(50, 50), opts.Initial, "", 100)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("Expected 100x100 preview, got %v", b)
	}
}

func TestPlaceClamps(t *testing.T) {
	ctx := context.Background()
	studio, err := New(ctx, testOptions(writeFrame(t)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := studio.Place(ctx, placement.Settings{X: 5000, Y: -5000, Size: 1000})
	if err != nil {
		t.Fatal(err)
	}
	// Size clamps to 400, then x to [-200, 200]
	want := placement.Settings{X: 200, Y: -200, Size: 400}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("Expected %s, got %s", Version, GetVersion())
	}
}
