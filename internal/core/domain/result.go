package domain

import "time"

// ScoreRating is the display band derived solely from the numeric score.
type ScoreRating string

const (
	RatingGood             ScoreRating = "Good"
	RatingNeedsImprovement ScoreRating = "Needs Improvement"
	RatingNeedsAttention   ScoreRating = "Needs Attention"
)

// RatingForScore maps a score to its band. Thresholds are inclusive on
// the lower edge: >=75 Good, >=40 Needs Improvement, below that Needs
// Attention. Total over all inputs; out-of-range scores fall into the
// nearest band rather than failing.
func RatingForScore(score float64) ScoreRating {
	switch {
	case score >= 75:
		return RatingGood
	case score >= 40:
		return RatingNeedsImprovement
	default:
		return RatingNeedsAttention
	}
}

// Issue is one projected rule category. Exactly three are emitted per
// analysis, in fixed order, even when a count is zero.
type Issue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Count       int      `json:"count"`
	Details     []string `json:"details,omitempty"`
}

// ProjectedResult is the stable renderable model derived from one
// RawAnalysis. Never mutated after creation; recomputed wholesale from
// a new payload.
type ProjectedResult struct {
	Score    float64     `json:"score"`
	Rating   ScoreRating `json:"rating"`
	Issues   []Issue     `json:"issues"`
	ImageRef string      `json:"image_ref,omitempty"`
}

// HistoryEntry is one completed upload in the newest-first log.
// Confirmed is false for locally appended optimistic entries that a
// later server listing may supersede.
type HistoryEntry struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Score      float64   `json:"score"`
	ImageRef   string    `json:"image_ref,omitempty"`
	Confirmed  bool      `json:"confirmed"`
}
