package api

import (
	"encoding/json"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

// historyItem tolerates the field-name drift seen across backend
// versions; every alias observed in the wild gets a slot.
type historyItem struct {
	ID            flexString `json:"id"`
	FileName      string     `json:"fileName"`
	FileNameSnake string     `json:"file_name"`
	S3Key         string     `json:"s3_key"`
	Score         *float64   `json:"score"`
	Score1        *float64   `json:"score1"`
	TotalScore    *float64   `json:"total_score"`
	UploadDate    string     `json:"uploadDate"`
	CreatedAt     string     `json:"created_at"`
	UploadedAt    string     `json:"uploaded_at"`
	S3URL         string     `json:"s3_url"`
	ImageURL      string     `json:"image_url"`
	DebugImageURL string     `json:"debug_image_url"`
}

// flexString accepts both string and numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

var historyTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseHistoryTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range historyTimeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func (it historyItem) fileName() string {
	switch {
	case it.FileName != "":
		return it.FileName
	case it.FileNameSnake != "":
		return it.FileNameSnake
	case it.S3Key != "":
		return path.Base(it.S3Key)
	default:
		return "sketch"
	}
}

func (it historyItem) score() float64 {
	switch {
	case it.Score != nil:
		return *it.Score
	case it.Score1 != nil:
		return *it.Score1
	case it.TotalScore != nil:
		return *it.TotalScore
	default:
		return 0
	}
}

func (it historyItem) imageRef() string {
	switch {
	case it.DebugImageURL != "":
		return it.DebugImageURL
	case it.S3URL != "":
		return it.S3URL
	default:
		return it.ImageURL
	}
}

func normalizeHistory(items []historyItem) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(items))
	for i, it := range items {
		id := string(it.ID)
		if id == "" {
			id = "history-" + strconv.Itoa(i)
		}
		entries = append(entries, domain.HistoryEntry{
			ID:         id,
			FileName:   it.fileName(),
			UploadedAt: parseHistoryTime(it.UploadDate, it.CreatedAt, it.UploadedAt),
			Score:      it.score(),
			ImageRef:   it.imageRef(),
			Confirmed:  true,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UploadedAt.After(entries[j].UploadedAt)
	})
	return entries
}
