package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/frame-compositor/internal/config"
)

// setup writes a 300x300 frame, two photos and a config that fits them. It
// returns the config path and the temp dir.
func setup(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	frameImg := image.NewNRGBA(image.Rect(0, 0, 300, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 300; x++ {
			if x < 30 || y < 30 || x >= 270 || y >= 270 {
				frameImg.Set(x, y, color.NRGBA{255, 105, 180, 255})
			}
		}
	}
	writePNG(t, filepath.Join(dir, "frame.png"), frameImg)

	photos := filepath.Join(dir, "photos")
	if err := os.MkdirAll(photos, 0o755); err != nil {
		t.Fatal(err)
	}
	photo := image.NewNRGBA(image.Rect(0, 0, 160, 120))
	for i := 0; i < len(photo.Pix); i += 4 {
		photo.Pix[i+1], photo.Pix[i+3] = 200, 255
	}
	writePNG(t, filepath.Join(photos, "ada.png"), photo)
	writePNG(t, filepath.Join(photos, "grace.png"), photo)

	cfg := config.Default()
	cfg.Frame = config.FrameConfig{Path: filepath.Join(dir, "frame.png"), Mask: "circle", X: 50, Y: 50, Size: 200}
	cfg.Zoom.MinSize = 100
	cfg.Zoom.MaxSize = 300
	cfg.Zoom.DefaultSize = 200
	cfg.Export.OutputDir = filepath.Join(dir, "out")
	path := filepath.Join(dir, "framer.yaml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("missing output %s: %v", path, err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("%s is not a PNG: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func TestExportCommand(t *testing.T) {
	cfgPath, dir := setup(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"export", "-config", cfgPath, "-in", filepath.Join(dir, "photos", "ada.png"), "-zoom-percent", "75"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, stderr.String())
	}

	w, h := decodeSize(t, filepath.Join(dir, "out", "avatar_image.png"))
	if w != 300 || h != 300 {
		t.Errorf("Expected 300x300 export, got %dx%d", w, h)
	}
	if !strings.Contains(stderr.String(), "size:150.0") {
		t.Errorf("Expected zoomed placement in log, got %q", stderr.String())
	}
}

func TestExportNeedsInput(t *testing.T) {
	cfgPath, _ := setup(t)
	err := run(context.Background(), []string{"export", "-config", cfgPath}, &bytes.Buffer{}, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Errorf("Expected usage error, got %v", err)
	}
}

func TestBatchCommand(t *testing.T) {
	cfgPath, dir := setup(t)
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"batch", "-config", cfgPath, "-jobs", "2", filepath.Join(dir, "photos")}, &bytes.Buffer{}, &stderr)
	if err != nil {
		t.Fatalf("batch failed: %v\n%s", err, stderr.String())
	}
	for _, name := range []string{"ada_avatar_image.png", "grace_avatar_image.png"} {
		if w, h := decodeSize(t, filepath.Join(dir, "out", name)); w != 300 || h != 300 {
			t.Errorf("%s: expected 300x300, got %dx%d", name, w, h)
		}
	}
}

func TestBatchReportsFailures(t *testing.T) {
	cfgPath, dir := setup(t)
	missing := filepath.Join(dir, "missing.png")
	err := run(context.Background(), []string{"batch", "-config", cfgPath, filepath.Join(dir, "photos", "ada.png"), missing}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("Expected one failure reported, got %v", err)
	}
}

func TestPreviewCommand(t *testing.T) {
	cfgPath, dir := setup(t)
	err := run(context.Background(), []string{"preview", "-config", cfgPath, "-in", filepath.Join(dir, "photos", "ada.png"), "-width", "150", "-debug"}, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if w, h := decodeSize(t, filepath.Join(dir, "out", previewFileName)); w != 150 || h != 150 {
		t.Errorf("Expected 150x150 preview, got %dx%d", w, h)
	}
}

func TestPreviewANSI(t *testing.T) {
	cfgPath, _ := setup(t)
	var stdout bytes.Buffer
	err := run(context.Background(), []string{"preview", "-config", cfgPath, "-width", "40", "-ansi"}, &stdout, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if lines := strings.Count(stdout.String(), "\n"); lines != 20 {
		t.Errorf("Expected 20 lines of half blocks, got %d", lines)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"config", "-preset", "badge"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "size: 2655") {
		t.Errorf("Expected badge placement in output, got:\n%s", stdout.String())
	}

	path := filepath.Join(t.TempDir(), "cfg", "framer.yaml")
	if err := run(context.Background(), []string{"config", "-write", path}, &bytes.Buffer{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("config -write failed: %v", err)
	}
	if _, err := config.LoadFromFile(path, nil); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}

func TestInvalidPreset(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := run(context.Background(), []string{"config", "-preset", "poster"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestVersionAndUnknown(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "framer ") {
		t.Errorf("Unexpected version output %q", stdout.String())
	}
	if err := run(context.Background(), []string{"paint"}, &bytes.Buffer{}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Errorf("Expected usage error for unknown command, got %v", err)
	}
	if err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{}); !errors.Is(err, errUsage) {
		t.Errorf("Expected usage error without a command, got %v", err)
	}
}
