package usecase

import (
	"fmt"
	"sync"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

// HistoryStore owns the newest-first log of completed uploads. Load
// replaces the list wholesale from the server listing; Append prepends
// a locally completed upload. Entries are never deduplicated: a
// locally-optimistic entry may coexist with the server-confirmed one
// until the next Load replaces the list.
type HistoryStore struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Load replaces the in-memory list wholesale. Entries are assumed to
// be normalized by the gateway; field-name drift never reaches here.
func (h *HistoryStore) Load(entries []domain.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]domain.HistoryEntry, len(entries))
	copy(h.entries, entries)
}

// Append prepends the entry so the log stays newest-first.
func (h *HistoryStore) Append(entry domain.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]domain.HistoryEntry{entry}, h.entries...)
}

// Entries returns a copy of the log, newest first.
func (h *HistoryStore) Entries() []domain.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len reports the number of entries without copying.
func (h *HistoryStore) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// SelectEntry reconstructs a minimal analysis payload for a past
// upload: the score and image are known, violation detail is not.
// Feeding it through the projector keeps the result shape uniform
// regardless of whether the entry came from a live upload or the
// server listing.
func (h *HistoryStore) SelectEntry(id string) (*domain.RawAnalysis, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, entry := range h.entries {
		if entry.ID == id {
			return &domain.RawAnalysis{
				Score:    entry.Score,
				Summary:  domain.AnalysisSummary{Score: entry.Score},
				ImageURL: entry.ImageRef,
			}, nil
		}
	}
	return nil, domain.WrapError(domain.ErrEntryNotFound, "select history entry", fmt.Errorf("no entry with id %s", id))
}
