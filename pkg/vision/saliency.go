// Package vision finds the visually important part of a photo without a
// model, using local contrast and brightness.
package vision

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// SubjectDetector scores image regions by saliency
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	// AnalysisSize is the longest side the image is reduced to before scoring
	AnalysisSize     int
	EdgeThreshold    float64
	ContrastWeight   float64
	BrightnessWeight float64
	MinSubjectRatio  float64
	MaxRegions       int
}

// DefaultConfig returns the detector defaults
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		AnalysisSize:     192,
		EdgeThreshold:    0.01,
		ContrastWeight:   0.8,
		BrightnessWeight: 0.2,
		MinSubjectRatio:  0.002,
		MaxRegions:       10,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	def := DefaultConfig()
	if config.AnalysisSize <= 0 {
		config.AnalysisSize = def.AnalysisSize
	}
	if config.MaxRegions <= 0 {
		config.MaxRegions = def.MaxRegions
	}
	return &SubjectDetector{config: config}
}

// Region is a rectangle of interest in source image pixels
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rect converts the region to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// SaliencyMap holds one score per analysis pixel with a summed-area table for
// constant-time window sums.
type SaliencyMap struct {
	Width, Height int
	Values        []float64
	sum           []float64 // (Width+1) x (Height+1)
}

// At returns the saliency of analysis pixel (x, y)
func (m *SaliencyMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Mean returns the average saliency over the window, clipped to the map
func (m *SaliencyMap) Mean(x, y, w, h int) float64 {
	x0, y0 := max(0, x), max(0, y)
	x1, y1 := min(m.Width, x+w), min(m.Height, y+h)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	stride := m.Width + 1
	s := m.sum[y1*stride+x1] - m.sum[y0*stride+x1] - m.sum[y1*stride+x0] + m.sum[y0*stride+x0]
	return s / float64((x1-x0)*(y1-y0))
}

// analysis is a reduced copy of an image together with the factor that maps
// its coordinates back to the source
type analysis struct {
	m      *SaliencyMap
	factor float64
	srcW   int
	srcH   int
}

func (d *SubjectDetector) analyze(img image.Image) (*analysis, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", b.Dx(), b.Dy())
	}
	small := imaging.Fit(img, d.config.AnalysisSize, d.config.AnalysisSize, imaging.Box)
	return &analysis{
		m:      d.saliency(small),
		factor: float64(b.Dx()) / float64(small.Bounds().Dx()),
		srcW:   b.Dx(),
		srcH:   b.Dy(),
	}, nil
}

// Saliency computes the saliency map of img at analysis resolution
func (d *SubjectDetector) Saliency(img image.Image) (*SaliencyMap, error) {
	a, err := d.analyze(img)
	if err != nil {
		return nil, err
	}
	return a.m, nil
}

func (d *SubjectDetector) saliency(img *image.NRGBA) *SaliencyMap {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			p := img.Pix[i : i+4 : i+4]
			a := float64(p[3]) / 255
			lum[y*w+x] = a * (0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])) / 255
		}
	}

	m := &SaliencyMap{Width: w, Height: h, Values: make([]float64, w*h)}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := lum[y*w+x]
			var edge float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					edge += math.Abs(c - lum[(y+dy)*w+x+dx])
				}
			}
			edge /= 8
			m.Values[y*w+x] = d.config.ContrastWeight*edge + d.config.BrightnessWeight*c
		}
	}

	stride := w + 1
	m.sum = make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += m.Values[y*w+x]
			m.sum[(y+1)*stride+x+1] = m.sum[y*stride+x+1] + row
		}
	}
	return m
}

// DetectSubjects returns the highest scoring regions, best first
func (d *SubjectDetector) DetectSubjects(img image.Image) ([]Region, error) {
	a, err := d.analyze(img)
	if err != nil {
		return nil, err
	}
	return a.toSource(d.findRegions(a.m)), nil
}

func (d *SubjectDetector) findRegions(m *SaliencyMap) []Region {
	var regions []Region
	minArea := float64(m.Width*m.Height) * d.config.MinSubjectRatio

	// Scores are relative to the whole image so flat photos yield nothing
	global := m.Mean(0, 0, m.Width, m.Height)

	short := min(m.Width, m.Height)
	for _, div := range []int{12, 8, 6, 4, 3} {
		size := short / div
		if size < 4 || float64(size*size) < minArea {
			continue
		}
		step := max(1, size/4)
		for y := 0; y+size <= m.Height; y += step {
			for x := 0; x+size <= m.Width; x += step {
				score := m.Mean(x, y, size, size) - global
				if score > d.config.EdgeThreshold {
					regions = append(regions, Region{X: x, Y: y, Width: size, Height: size, Score: score})
				}
			}
		}
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Score > regions[j].Score
	})
	if len(regions) > d.config.MaxRegions {
		regions = regions[:d.config.MaxRegions]
	}
	return regions
}

func (a *analysis) toSource(regions []Region) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		x := clampInt(int(math.Round(float64(r.X)*a.factor)), 0, a.srcW-1)
		y := clampInt(int(math.Round(float64(r.Y)*a.factor)), 0, a.srcH-1)
		out[i] = Region{
			X:      x,
			Y:      y,
			Width:  clampInt(int(math.Round(float64(r.Width)*a.factor)), 1, a.srcW-x),
			Height: clampInt(int(math.Round(float64(r.Height)*a.factor)), 1, a.srcH-y),
			Score:  r.Score,
		}
	}
	return out
}

// FindBestSquare returns the square of side min(width, height)/zoom that
// covers the most salient content. zoom below 1 is treated as 1.
func (d *SubjectDetector) FindBestSquare(img image.Image, zoom float64) (Region, error) {
	if zoom < 1 || math.IsNaN(zoom) {
		zoom = 1
	}
	a, err := d.analyze(img)
	if err != nil {
		return Region{}, err
	}
	m := a.m
	subjects := d.findRegions(m)

	side := max(1, int(math.Round(float64(min(m.Width, m.Height))/zoom)))
	best := Region{X: (m.Width - side) / 2, Y: (m.Height - side) / 2, Width: side, Height: side}
	bestScore := scorePosition(subjects, best)

	if len(subjects) > 0 {
		// Among equally good squares, prefer the one centered on the subjects
		gx, gy := centroid(subjects)
		bestDist := math.Inf(1)
		step := max(1, side/20)
		for y := 0; y+side <= m.Height; y += step {
			for x := 0; x+side <= m.Width; x += step {
				r := Region{X: x, Y: y, Width: side, Height: side}
				s := scorePosition(subjects, r)
				dist := math.Hypot(float64(x)+float64(side)/2-gx, float64(y)+float64(side)/2-gy)
				if s > bestScore+1e-9 || (s > bestScore-1e-9 && dist < bestDist) {
					best, bestScore, bestDist = r, s, dist
				}
			}
		}
	}

	// Map back with an exact square side in source pixels
	srcSide := max(1, int(math.Round(float64(min(a.srcW, a.srcH))/zoom)))
	cx := (float64(best.X) + float64(best.Width)/2) * a.factor
	cy := (float64(best.Y) + float64(best.Height)/2) * a.factor
	x := clampInt(int(math.Round(cx-float64(srcSide)/2)), 0, a.srcW-srcSide)
	y := clampInt(int(math.Round(cy-float64(srcSide)/2)), 0, a.srcH-srcSide)
	return Region{X: x, Y: y, Width: srcSide, Height: srcSide, Score: bestScore}, nil
}

// centroid is the score-weighted center of the subjects
func centroid(subjects []Region) (float64, float64) {
	var sx, sy, total float64
	for _, s := range subjects {
		sx += (float64(s.X) + float64(s.Width)/2) * s.Score
		sy += (float64(s.Y) + float64(s.Height)/2) * s.Score
		total += s.Score
	}
	if total == 0 {
		return 0, 0
	}
	return sx / total, sy / total
}

// scorePosition weights each subject by how much of it the crop keeps
func scorePosition(subjects []Region, crop Region) float64 {
	var score float64
	cr := crop.Rect()
	for _, s := range subjects {
		overlap := cr.Intersect(s.Rect())
		if overlap.Empty() {
			continue
		}
		ratio := float64(overlap.Dx()*overlap.Dy()) / float64(s.Area())
		score += ratio * s.Score
	}
	return score
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
