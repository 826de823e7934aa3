// Package client defines the vision backend contract used for subject-aware
// cropping and the reply parsing shared by all backends.
package client

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/menta2k/frame-compositor/pkg/types"
)

// DefaultTimeout bounds a single model call when the caller's context has no
// deadline. Vision models on CPU are slow.
const DefaultTimeout = 300 * time.Second

// VisionClient locates the subject of an image with a vision model
type VisionClient interface {
	LocateSubject(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}

// WithDefaultTimeout applies DefaultTimeout when ctx has no deadline
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseReply turns a model reply into an analysis result. Replies that are not
// usable JSON produce a centered fallback rather than an error.
func ParseReply(raw string) *types.AnalysisResult {
	raw = SanitizeJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return types.FallbackResult("unclear image", "model returned non-JSON response", "unclear", "non-json", "fallback")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return types.FallbackResult("parse error", "failed to parse model response", "parse-error", "fallback")
	}

	// An empty object means the model found nothing useful
	if result.Primary.Label == "" && result.Primary.Confidence == 0 && result.Primary.Box.Empty() {
		return types.FallbackResult("none", "empty model response", "fallback")
	}
	return &result
}

// SanitizeJSON strips code fences, comments and trailing commas, keeping only
// the outermost object
func SanitizeJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
