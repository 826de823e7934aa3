package config

import (
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	framer "github.com/menta2k/frame-compositor"
	"github.com/menta2k/frame-compositor/pkg/compositor"
	"github.com/menta2k/frame-compositor/pkg/cropper"
	"github.com/menta2k/frame-compositor/pkg/geometry"
	"github.com/menta2k/frame-compositor/pkg/placement"
	"github.com/menta2k/frame-compositor/pkg/tui"
)

// Config holds the application configuration
type Config struct {
	Frame   FrameConfig   `yaml:"frame"`
	Zoom    ZoomConfig    `yaml:"zoom"`
	Caption CaptionConfig `yaml:"caption"`
	Preview PreviewConfig `yaml:"preview"`
	Export  ExportConfig  `yaml:"export"`
	Upload  UploadConfig  `yaml:"upload"`
}

// FrameConfig describes the frame asset and where the photo goes by default
type FrameConfig struct {
	Path string  `yaml:"path"`
	Mask string  `yaml:"mask"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Size float64 `yaml:"size"`
}

// ZoomConfig holds placement size limits in frame pixels
type ZoomConfig struct {
	MinSize     float64 `yaml:"min_size"`
	MaxSize     float64 `yaml:"max_size"`
	DefaultSize float64 `yaml:"default_size"`
	MinPercent  float64 `yaml:"min_percent"`
	MaxPercent  float64 `yaml:"max_percent"`
	// Step is the keyboard zoom increment in percent
	Step float64 `yaml:"step"`
	// Nudge is the keyboard move distance in frame pixels
	Nudge float64 `yaml:"nudge"`
}

// CaptionConfig holds the name text settings
type CaptionConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Text          string  `yaml:"text"`
	AnchorX       float64 `yaml:"anchor_x"`
	AnchorY       float64 `yaml:"anchor_y"`
	FontSize      float64 `yaml:"font_size"`
	Font          string  `yaml:"font"`
	StrokeWidth   float64 `yaml:"stroke_width"`
	StrokeColor   string  `yaml:"stroke_color"`
	FillColor     string  `yaml:"fill_color"`
	ShadowColor   string  `yaml:"shadow_color"`
	ShadowOffsetX float64 `yaml:"shadow_offset_x"`
	ShadowOffsetY float64 `yaml:"shadow_offset_y"`
	ShadowBlur    float64 `yaml:"shadow_blur"`
}

// PreviewConfig holds preview sizing
type PreviewConfig struct {
	Breakpoint     int     `yaml:"breakpoint"`
	WideFraction   float64 `yaml:"wide_fraction"`
	NarrowFraction float64 `yaml:"narrow_fraction"`
	Filter         string  `yaml:"filter"`
	// Width is the default width of `framer preview` output
	Width int `yaml:"width"`
	// Background is blended under transparent pixels in the terminal
	Background string `yaml:"background"`
}

// ExportConfig holds export settings
type ExportConfig struct {
	FileName    string `yaml:"file_name"`
	OutputDir   string `yaml:"output_dir"`
	Compression string `yaml:"compression"`
	Filter      string `yaml:"filter"`
	MaxPixels   int    `yaml:"max_pixels"`
	Jobs        int    `yaml:"jobs"`
}

// UploadConfig holds settings for turning uploads into square user images
type UploadConfig struct {
	Strategy      string  `yaml:"strategy"`
	Zoom          float64 `yaml:"zoom"`
	OutputSize    int     `yaml:"output_size"`
	MinSize       int     `yaml:"min_size"`
	Backend       string  `yaml:"backend"`
	URL           string  `yaml:"url"`
	Model         string  `yaml:"model"`
	MaxDim        int     `yaml:"max_dim"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// Default returns the avatar preset
func Default() *Config {
	return &Config{
		Frame: FrameConfig{
			Path: "frame.png",
			Mask: "square",
			X:    275,
			Y:    205,
			Size: 1444,
		},
		Zoom: ZoomConfig{
			MinSize:     800,
			MaxSize:     2200,
			DefaultSize: 1444,
			MinPercent:  50,
			MaxPercent:  125,
			Step:        5,
			Nudge:       10,
		},
		Caption: CaptionConfig{
			Enabled:       false,
			AnchorX:       1883,
			AnchorY:       3770,
			FontSize:      195,
			StrokeWidth:   4,
			StrokeColor:   "#ff69b4",
			FillColor:     "#ffffff",
			ShadowColor:   "#0000001f",
			ShadowOffsetX: 2,
			ShadowOffsetY: 1,
			ShadowBlur:    8,
		},
		Preview: PreviewConfig{
			Breakpoint:     768,
			WideFraction:   0.6,
			NarrowFraction: 0.85,
			Filter:         "linear",
			Width:          600,
			Background:     "#1e1e2e",
		},
		Export: ExportConfig{
			FileName:    compositor.DefaultFileName,
			OutputDir:   "./output",
			Compression: "default",
			Filter:      "lanczos",
			MaxPixels:   compositor.DefaultMaxPixels,
			Jobs:        4,
		},
		Upload: UploadConfig{
			Strategy:      "center",
			Zoom:          1,
			OutputSize:    0,
			MinSize:       16,
			Backend:       "none",
			Model:         "minicpm-v",
			MaxDim:        768,
			MinConfidence: 0.3,
		},
	}
}

// Presets lists the built-in preset names
func Presets() []string {
	return []string{"avatar", "badge"}
}

// Preset returns a built-in configuration by name
func Preset(name string) (*Config, error) {
	c := Default()
	switch strings.ToLower(name) {
	case "", "avatar":
		return c, nil
	case "badge":
		c.Frame = FrameConfig{Path: "badge.png", Mask: "circle", X: 610, Y: 868, Size: 2655}
		c.Zoom.MinSize = 1330
		c.Zoom.MaxSize = 3320
		c.Zoom.DefaultSize = 2655
		c.Zoom.Nudge = 20
		c.Caption.Enabled = true
		c.Export.FileName = "badge_image.png"
		return c, nil
	}
	return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Presets(), ", "))
}

// LoadFromFile loads configuration from a YAML file. Missing keys keep the
// values of base, or of Default when base is nil.
func LoadFromFile(filename string, base *Config) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if base != nil {
		cp := *base
		config = &cp
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := compositor.ParseShape(c.Frame.Mask); err != nil {
		return fmt.Errorf("frame.mask: %w", err)
	}
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("zoom: %w", err)
	}
	if c.Frame.Size < c.Zoom.MinSize || c.Frame.Size > c.Zoom.MaxSize {
		return fmt.Errorf("frame.size %.0f must be between zoom.min_size and zoom.max_size", c.Frame.Size)
	}
	if c.Zoom.Step <= 0 {
		return fmt.Errorf("zoom.step must be positive")
	}
	if c.Zoom.Nudge <= 0 {
		return fmt.Errorf("zoom.nudge must be positive")
	}

	if c.Caption.Enabled {
		if c.Caption.FontSize <= 0 {
			return fmt.Errorf("caption.font_size must be positive")
		}
		if c.Caption.StrokeWidth < 0 || c.Caption.ShadowBlur < 0 {
			return fmt.Errorf("caption.stroke_width and caption.shadow_blur cannot be negative")
		}
		for name, v := range map[string]string{
			"caption.stroke_color": c.Caption.StrokeColor,
			"caption.fill_color":   c.Caption.FillColor,
			"caption.shadow_color": c.Caption.ShadowColor,
		} {
			if _, err := ParseHexColor(v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}

	if c.Preview.Breakpoint < 0 {
		return fmt.Errorf("preview.breakpoint cannot be negative")
	}
	if !validFraction(c.Preview.WideFraction) || !validFraction(c.Preview.NarrowFraction) {
		return fmt.Errorf("preview fractions must be in (0, 1]")
	}
	if _, err := ParseHexColor(c.Preview.Background); err != nil {
		return fmt.Errorf("preview.background: %w", err)
	}

	if c.Export.FileName == "" || !strings.EqualFold(filepath.Ext(c.Export.FileName), ".png") {
		return fmt.Errorf("export.file_name must end in .png")
	}
	if _, err := ParseCompression(c.Export.Compression); err != nil {
		return fmt.Errorf("export.compression: %w", err)
	}
	if c.Export.Jobs < 1 {
		return fmt.Errorf("export.jobs must be at least 1")
	}

	if _, err := cropper.ParseStrategy(c.Upload.Strategy); err != nil {
		return fmt.Errorf("upload.strategy: %w", err)
	}
	if c.Upload.Zoom < cropper.MinZoom || c.Upload.Zoom > cropper.MaxZoom {
		return fmt.Errorf("upload.zoom must be between %.0f and %.0f", cropper.MinZoom, cropper.MaxZoom)
	}
	if c.Upload.MinConfidence < 0 || c.Upload.MinConfidence > 1 {
		return fmt.Errorf("upload.min_confidence must be between 0 and 1")
	}
	switch c.Upload.Backend {
	case "none", "ollama", "llamacpp":
	default:
		return fmt.Errorf("upload.backend must be none, ollama or llamacpp")
	}
	return nil
}

func validFraction(f float64) bool {
	return f > 0 && f <= 1
}

// Limits returns the placement limits
func (c *Config) Limits() placement.Limits {
	return placement.Limits{
		MinSize:     c.Zoom.MinSize,
		MaxSize:     c.Zoom.MaxSize,
		DefaultSize: c.Zoom.DefaultSize,
		MinPercent:  c.Zoom.MinPercent,
		MaxPercent:  c.Zoom.MaxPercent,
	}
}

// InitialPlacement returns the configured default placement
func (c *Config) InitialPlacement() placement.Settings {
	return placement.Settings{X: c.Frame.X, Y: c.Frame.Y, Size: c.Frame.Size}
}

// CompositorOptions builds engine options from the configuration
func (c *Config) CompositorOptions(logger *slog.Logger) (compositor.Options, error) {
	mask, err := compositor.ParseShape(c.Frame.Mask)
	if err != nil {
		return compositor.Options{}, err
	}
	level, err := ParseCompression(c.Export.Compression)
	if err != nil {
		return compositor.Options{}, err
	}

	opts := compositor.DefaultOptions()
	opts.Mask = mask
	opts.PreviewFilter = c.Preview.Filter
	opts.ExportFilter = c.Export.Filter
	opts.Compression = level
	opts.FileName = c.Export.FileName
	opts.MaxPixels = c.Export.MaxPixels
	opts.Logger = logger

	if c.Caption.Enabled {
		style, err := c.CaptionStyle()
		if err != nil {
			return compositor.Options{}, err
		}
		opts.Caption = &style
	}
	return opts, nil
}

// CaptionStyle converts the caption section
func (c *Config) CaptionStyle() (compositor.CaptionStyle, error) {
	cc := c.Caption
	stroke, err := ParseHexColor(cc.StrokeColor)
	if err != nil {
		return compositor.CaptionStyle{}, fmt.Errorf("stroke color: %w", err)
	}
	fill, err := ParseHexColor(cc.FillColor)
	if err != nil {
		return compositor.CaptionStyle{}, fmt.Errorf("fill color: %w", err)
	}
	shadow, err := ParseHexColor(cc.ShadowColor)
	if err != nil {
		return compositor.CaptionStyle{}, fmt.Errorf("shadow color: %w", err)
	}
	return compositor.CaptionStyle{
		Anchor:       geometry.Pt(cc.AnchorX, cc.AnchorY),
		FontSize:     cc.FontSize,
		FontPath:     cc.Font,
		StrokeWidth:  cc.StrokeWidth,
		StrokeColor:  stroke,
		FillColor:    fill,
		ShadowColor:  shadow,
		ShadowOffset: geometry.Pt(cc.ShadowOffsetX, cc.ShadowOffsetY),
		ShadowBlur:   cc.ShadowBlur,
	}, nil
}

// CropConfig converts the upload section
func (c *Config) CropConfig() (cropper.CropConfig, error) {
	strategy, err := cropper.ParseStrategy(c.Upload.Strategy)
	if err != nil {
		return cropper.CropConfig{}, err
	}
	return cropper.CropConfig{
		Strategy:      strategy,
		Zoom:          c.Upload.Zoom,
		OutputSize:    c.Upload.OutputSize,
		MinSize:       c.Upload.MinSize,
		Model:         c.Upload.Model,
		ModelMaxDim:   c.Upload.MaxDim,
		MinConfidence: c.Upload.MinConfidence,
	}, nil
}

// StudioOptions converts the whole configuration for framer.New
func (c *Config) StudioOptions(logger *slog.Logger) (framer.Options, error) {
	copts, err := c.CompositorOptions(logger)
	if err != nil {
		return framer.Options{}, err
	}
	crop, err := c.CropConfig()
	if err != nil {
		return framer.Options{}, err
	}
	return framer.Options{
		Frame:      c.Frame.Path,
		Compositor: copts,
		Crop:       crop,
		Backend:    c.Upload.Backend,
		BackendURL: c.Upload.URL,
		Initial:    c.InitialPlacement(),
		Limits:     c.Limits(),
		Logger:     logger,
	}, nil
}

// CaptionText returns the caption to draw, or "" when captions are off
func (c *Config) CaptionText() string {
	if !c.Caption.Enabled {
		return ""
	}
	return c.Caption.Text
}

// EditorOptions converts the settings used by the interactive editor
func (c *Config) EditorOptions() (tui.Options, error) {
	bg, err := ParseHexColor(c.Preview.Background)
	if err != nil {
		return tui.Options{}, fmt.Errorf("preview background: %w", err)
	}
	return tui.Options{
		ZoomStep:   c.Zoom.Step,
		Nudge:      c.Zoom.Nudge,
		Background: bg,
		OutputDir:  c.Export.OutputDir,
		Caption:    c.CaptionText(),
	}, nil
}

// ParseCompression maps a name to a PNG compression level
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "fast", "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return png.DefaultCompression, fmt.Errorf("unknown compression %q (want default, none, fast or best)", name)
}

// ParseHexColor parses #rgb, #rrggbb or #rrggbbaa
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./framer.yaml"
	}
	return filepath.Join(home, ".config", "framer", "config.yaml")
}
