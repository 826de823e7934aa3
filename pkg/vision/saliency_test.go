package vision

import (
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a gray image with a bright square at subject
func createTestImage(width, height int, subject image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (image.Point{x, y}).In(subject) {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}
	if detector.config.AnalysisSize != 192 {
		t.Errorf("Expected analysis size 192, got %d", detector.config.AnalysisSize)
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	detector := NewWithConfig(DetectionConfig{EdgeThreshold: 0.2})
	if detector.config.EdgeThreshold != 0.2 {
		t.Errorf("Expected edge threshold 0.2, got %f", detector.config.EdgeThreshold)
	}
	if detector.config.AnalysisSize != 192 || detector.config.MaxRegions != 10 {
		t.Errorf("zero fields not defaulted: %+v", detector.config)
	}
}

func TestRegionCenter(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}
	cx, cy := region.Center()
	if cx != 60 || cy != 60 {
		t.Errorf("Expected center (60, 60), got (%d, %d)", cx, cy)
	}
	if region.Area() != 8000 {
		t.Errorf("Expected area 8000, got %d", region.Area())
	}
}

func TestSaliencyMap(t *testing.T) {
	detector := New()
	img := createTestImage(100, 100, image.Rect(40, 40, 60, 60))

	m, err := detector.Saliency(img)
	if err != nil {
		t.Fatalf("Saliency failed: %v", err)
	}
	if m.Width != 100 || m.Height != 100 {
		t.Fatalf("Expected 100x100 map for a small image, got %dx%d", m.Width, m.Height)
	}
	// edge of the bright square scores higher than flat background
	if m.At(40, 50) <= m.At(10, 10) {
		t.Errorf("edge %f should beat background %f", m.At(40, 50), m.At(10, 10))
	}
	if m.Mean(35, 35, 30, 30) <= m.Mean(0, 0, 30, 30) {
		t.Error("window around the subject should have higher mean saliency")
	}
	if m.Mean(200, 200, 10, 10) != 0 {
		t.Error("window outside the map should be 0")
	}
}

func TestSaliencyInvalidImage(t *testing.T) {
	if _, err := New().Saliency(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestDetectSubjects(t *testing.T) {
	detector := New()
	img := createTestImage(400, 300, image.Rect(250, 100, 330, 180))

	regions, err := detector.DetectSubjects(img)
	if err != nil {
		t.Fatalf("DetectSubjects failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("Expected to detect at least one region")
	}
	for i, r := range regions {
		if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 || r.X+r.Width > 400 || r.Y+r.Height > 300 {
			t.Errorf("region %d out of bounds: %+v", i, r)
		}
		if i > 0 && r.Score > regions[i-1].Score {
			t.Errorf("regions not sorted by score at %d", i)
		}
	}
	if !regions[0].Rect().Overlaps(image.Rect(250, 100, 330, 180)) {
		t.Errorf("best region %+v misses the subject", regions[0])
	}
}

func TestFindBestSquare(t *testing.T) {
	detector := New()
	img := createTestImage(300, 100, image.Rect(230, 30, 270, 70))

	region, err := detector.FindBestSquare(img, 1)
	if err != nil {
		t.Fatalf("FindBestSquare failed: %v", err)
	}
	if region.Width != 100 || region.Height != 100 {
		t.Fatalf("Expected 100x100 square, got %dx%d", region.Width, region.Height)
	}
	if region.X+region.Width > 300 || region.X < 0 || region.Y != 0 {
		t.Errorf("square outside image: %+v", region)
	}
	if region.X < 170 {
		t.Errorf("Expected square on the subject side, got x=%d", region.X)
	}
}

func TestFindBestSquareZoom(t *testing.T) {
	detector := New()
	img := createTestImage(200, 200, image.Rect(20, 20, 60, 60))

	region, err := detector.FindBestSquare(img, 2)
	if err != nil {
		t.Fatal(err)
	}
	if region.Width != 100 {
		t.Fatalf("Expected side 100 at zoom 2, got %d", region.Width)
	}
	if region.X > 20 || region.Y > 20 {
		t.Errorf("Expected square covering the top-left subject, got %+v", region)
	}
}

func TestFindBestSquareFlatImage(t *testing.T) {
	detector := New()
	img := createTestImage(300, 100, image.Rectangle{})

	region, err := detector.FindBestSquare(img, 1)
	if err != nil {
		t.Fatal(err)
	}
	if region.X != 100 {
		t.Errorf("Expected centered square on a flat image, got x=%d", region.X)
	}
}

func BenchmarkFindBestSquare(b *testing.B) {
	detector := New()
	img := createTestImage(1200, 900, image.Rect(700, 200, 900, 500))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.FindBestSquare(img, 1)
	}
}
