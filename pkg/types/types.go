package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized center of the box
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Empty reports whether the box has no area
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Primary represents the primary subject (usually a face) detected in an upload
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the complete analysis result from the vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// FallbackResult is used when a model reply cannot be parsed. It points at the
// middle of the image so cropping degrades to a center crop.
func FallbackResult(label, description string, tags ...string) *AnalysisResult {
	return &AnalysisResult{
		Primary: Primary{
			Label:      label,
			Confidence: 0.1,
			Box:        Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Tags:        tags,
	}
}
