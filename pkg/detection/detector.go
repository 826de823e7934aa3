// Package detection asks a vision model where the subject of a portrait is so
// uploads can be square-cropped around it.
package detection

import (
	"context"
	"math"
	"strings"

	"github.com/menta2k/frame-compositor/pkg/client"
	"github.com/menta2k/frame-compositor/pkg/types"
)

// DefaultPrompt asks for the face (or main subject) of a profile photo
const DefaultPrompt = `You are locating the subject of a profile photo that will be cropped to a square avatar.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 15 words)",
  "tags": ["tag1", "tag2", "tag3"]
}

RULES
- All coordinates are normalized to [0,1] (NOT pixels). (cx, cy) is the box center.
- Prefer the largest human face. If there is no face, box the person; else the most salient object.
- Include hair and chin in a face box.
- Do not guess identities.
- If no subject is found, return:
  {"primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},"description":"no clear subject","tags":["none"]}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// fallbackIndicators mark replies that came from ParseReply's fallbacks
var fallbackIndicators = []string{"unclear", "empty", "parse", "error", "fallback", "non-json"}

// Detector locates subjects with a vision client
type Detector struct {
	client client.VisionClient
	prompt string
}

// NewDetector creates a detector using DefaultPrompt
func NewDetector(c client.VisionClient) *Detector {
	return &Detector{client: c, prompt: DefaultPrompt}
}

// WithPrompt returns a copy of the detector that sends prompt instead
func (d *Detector) WithPrompt(prompt string) *Detector {
	cp := *d
	cp.prompt = prompt
	return &cp
}

// DetectSubject returns the subject of the base64 encoded image. Unusable
// replies are reported with label "none".
func (d *Detector) DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.LocateSubject(ctx, model, d.prompt, imageB64)
	if err != nil {
		return nil, err
	}

	result.Primary.Box = normalizeBox(result.Primary.Box)
	result.Tags = normalizeTags(result.Tags)
	return validate(result), nil
}

func validate(result *types.AnalysisResult) *types.AnalysisResult {
	p := &result.Primary
	if strings.EqualFold(p.Label, "none") {
		p.Label = "none"
		p.Confidence = 0
		return result
	}

	for _, indicator := range fallbackIndicators {
		if strings.Contains(strings.ToLower(p.Label), indicator) ||
			strings.Contains(strings.ToLower(result.Description), indicator) {
			p.Label = "none"
			p.Confidence = 0
			return result
		}
	}

	// The box is what models get right most often; derive the center from
	// it when the reported one disagrees.
	if !p.Box.Empty() {
		bx, by := p.Box.Center()
		if math.Abs(p.Cx-bx) > p.Box.W/2 || math.Abs(p.Cy-by) > p.Box.H/2 {
			p.Cx, p.Cy = bx, by
		}
	}
	p.Cx = clamp(p.Cx, 0, 1)
	p.Cy = clamp(p.Cy, 0, 1)
	p.Confidence = clamp(p.Confidence, 0, 1)
	return result
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
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

// normalizeBox clamps the box into [0,1], converting from percentages when a
// model answers in 0-100
func normalizeBox(b types.Box) types.Box {
	if b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1 {
		if b.X <= 100 && b.Y <= 100 && b.W <= 100 && b.H <= 100 {
			b = types.Box{X: b.X / 100, Y: b.Y / 100, W: b.W / 100, H: b.H / 100}
		}
	}
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags lowercases, dedupes and limits tags to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
