package usecase

import (
	"fmt"
	"strings"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

// IssueTemplate is the static identity and explanatory text of one
// rule category.
type IssueTemplate struct {
	ID          string
	Title       string
	Description string
}

// IssueCatalog supplies the display texts for the three rule
// categories. It is an explicit projection-boundary default, not
// business logic: callers may override it wholesale.
type IssueCatalog struct {
	TargetSize   IssueTemplate
	Spacing      IssueTemplate
	LabelPairing IssueTemplate
}

// DefaultIssueCatalog returns the stock WCAG-oriented texts.
func DefaultIssueCatalog() IssueCatalog {
	return IssueCatalog{
		TargetSize: IssueTemplate{
			ID:    "target_size",
			Title: "Touch Target Size",
			Description: "Ensures all interactive elements are large enough to be easily activated. " +
				"WCAG recommends a minimum target size of 44x44 pixels for touch interfaces.",
		},
		Spacing: IssueTemplate{
			ID:    "spacing",
			Title: "Spacing",
			Description: "Adequate spacing between interactive elements prevents accidental activation " +
				"and improves overall usability for users with motor impairments.",
		},
		LabelPairing: IssueTemplate{
			ID:    "label_pairing",
			Title: "Input Labels",
			Description: "Every input field should have a clear, visible label or programmatically " +
				"associated label to help users understand what information is required.",
		},
	}
}

// ResultProjector is the pure transformation from a raw analysis
// payload to the renderable score/issue model. Deterministic and
// total: the same payload always yields the same three issues in the
// same order.
type ResultProjector struct {
	catalog IssueCatalog
}

func NewResultProjector() *ResultProjector {
	return &ResultProjector{catalog: DefaultIssueCatalog()}
}

func NewResultProjectorWithCatalog(catalog IssueCatalog) *ResultProjector {
	return &ResultProjector{catalog: catalog}
}

// Project derives the score, rating band and the fixed-order issue
// list (Touch Target Size, Spacing, Input Labels). All three issues
// are always emitted, counts included when zero.
func (p *ResultProjector) Project(raw *domain.RawAnalysis) domain.ProjectedResult {
	if raw == nil {
		raw = &domain.RawAnalysis{}
	}

	byKind := map[domain.RuleKind][]domain.Violation{}
	for _, v := range raw.Violations {
		byKind[v.Rule] = append(byKind[v.Rule], v)
	}

	issues := []domain.Issue{
		{
			ID:          p.catalog.TargetSize.ID,
			Title:       p.catalog.TargetSize.Title,
			Description: p.catalog.TargetSize.Description,
			Count:       len(byKind[domain.RuleTargetSize]),
			Details:     targetSizeDetails(byKind[domain.RuleTargetSize]),
		},
		{
			ID:          p.catalog.Spacing.ID,
			Title:       p.catalog.Spacing.Title,
			Description: p.catalog.Spacing.Description,
			Count:       len(byKind[domain.RuleSpacing]),
			Details:     spacingDetails(raw.Spacing.Violations),
		},
		{
			ID:          p.catalog.LabelPairing.ID,
			Title:       p.catalog.LabelPairing.Title,
			Description: p.catalog.LabelPairing.Description,
			// Label-pairing violations are reported in their dedicated
			// list, not the flat one.
			Count: len(raw.LabelPairing.Violations),
		},
	}

	return domain.ProjectedResult{
		Score:    raw.Score,
		Rating:   domain.RatingForScore(raw.Score),
		Issues:   issues,
		ImageRef: raw.ImageRef(),
	}
}

func targetSizeDetails(violations []domain.Violation) []string {
	if len(violations) == 0 {
		return nil
	}
	details := make([]string, 0, len(violations))
	for _, v := range violations {
		detail := strings.TrimSpace(v.Detail)
		if detail == "" {
			detail = "target below the minimum touch size"
		}
		details = append(details, fmt.Sprintf("element %s: %s", formatElementIDs(v.IDs), detail))
	}
	return details
}

func spacingDetails(violations []domain.SpacingViolation) []string {
	if len(violations) == 0 {
		return nil
	}
	details := make([]string, 0, len(violations))
	for _, v := range violations {
		details = append(details, fmt.Sprintf("elements %d and %d are %.1fpx apart", v.ID1, v.ID2, v.Distance))
	}
	return details
}

func formatElementIDs(ids []int) string {
	if len(ids) == 0 {
		return "?"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
