package ports

import (
	"context"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

// SessionManager is the inbound contract for authentication state.
type SessionManager interface {
	Establish(ctx context.Context, token string, user domain.User) (*domain.Session, error)
	EstablishFromToken(ctx context.Context, token string) (*domain.Session, error)
	EstablishFromCode(ctx context.Context, code string) (*domain.Session, error)
	Restore(ctx context.Context) (*domain.Session, error)
	Clear(ctx context.Context)
	IsAuthenticated(ctx context.Context) bool
	Current() *domain.Session
	Logout(ctx context.Context)
}

// SketchSubmitter is the inbound contract for the upload cycle.
type SketchSubmitter interface {
	Submit(ctx context.Context, sketch domain.Sketch) (*domain.ProjectedResult, error)
	Reset()
	Task() domain.UploadTask
	Result() *domain.ProjectedResult
	Err() error
}

// HistoryBrowser is the inbound read model over completed uploads.
type HistoryBrowser interface {
	Entries() []domain.HistoryEntry
	SelectEntry(id string) (*domain.RawAnalysis, error)
}
