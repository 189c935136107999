package domain

import "encoding/json"

// RuleKind tags a violation with one of the three tracked rule
// categories.
type RuleKind string

const (
	RuleSpacing      RuleKind = "spacing"
	RuleTargetSize   RuleKind = "target_size"
	RuleLabelPairing RuleKind = "label_pairing"
)

// Violation is one entry of the analyzer's flat violation list.
type Violation struct {
	Rule    RuleKind `json:"rule"`
	IDs     []int    `json:"ids"`
	Classes []string `json:"classes"`
	Detail  string   `json:"detail"`
	Index   int      `json:"index"`
}

// SpacingViolation carries the measured distance between two elements.
type SpacingViolation struct {
	ID1      int      `json:"id1"`
	ID2      int      `json:"id2"`
	Classes  []string `json:"classes"`
	Distance float64  `json:"distance"`
}

type TargetSizeViolation struct {
	ID      int       `json:"id"`
	Element string    `json:"element"`
	BBox    []float64 `json:"bbox"`
	Reason  string    `json:"reason"`
	Detail  string    `json:"detail"`
}

type AnalysisSummary struct {
	Passed          bool    `json:"passed"`
	TotalViolations int     `json:"total_violations"`
	Score           float64 `json:"score"`
}

type SpacingResult struct {
	Passed     bool               `json:"passed"`
	Violations []SpacingViolation `json:"violations"`
}

type TargetSizeResult struct {
	Passed     bool                  `json:"passed"`
	Violations []TargetSizeViolation `json:"violations"`
}

// LabelPairingResult keeps its violation entries opaque: the analyzer
// reports them in a dedicated list whose per-entry shape is not yet
// settled upstream.
type LabelPairingResult struct {
	Passed     bool              `json:"passed"`
	Details    []json.RawMessage `json:"details"`
	Violations []json.RawMessage `json:"violations"`
}

// RawAnalysis is the analyzer payload as delivered by the upload
// collaborator, before projection into the renderable result model.
type RawAnalysis struct {
	Score         float64            `json:"score"`
	Summary       AnalysisSummary    `json:"summary"`
	Violations    []Violation        `json:"violations"`
	Spacing       SpacingResult      `json:"spacing_result"`
	TargetSize    TargetSizeResult   `json:"target_size_result"`
	LabelPairing  LabelPairingResult `json:"label_pairing_result"`
	ImageURL      string             `json:"image_url"`
	DebugImageURL string             `json:"debug_image_url"`
}

// ImageRef selects the annotated debug image when the analyzer
// produced one, falling back to the original upload.
func (a *RawAnalysis) ImageRef() string {
	if a.DebugImageURL != "" {
		return a.DebugImageURL
	}
	return a.ImageURL
}
