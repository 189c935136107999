package ports

import (
	"context"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
)

// AuthGateway is the consumed session-exchange collaborator.
type AuthGateway interface {
	// LoginURL builds the identity provider's authorization URL.
	LoginURL(state string) string
	// ExchangeCode resolves an authorization code into a token and user.
	ExchangeCode(ctx context.Context, code string) (domain.AuthGrant, error)
	// Logout is best-effort; callers clear local state regardless.
	Logout(ctx context.Context) error
}

// UploadGateway is the consumed upload/analysis collaborator. Upload
// returns either an inline analysis or a bare acknowledgement; in the
// latter case FetchScore retrieves the analysis after the settling
// delay.
type UploadGateway interface {
	Upload(ctx context.Context, sketch domain.Sketch) (*domain.UploadReceipt, error)
	FetchScore(ctx context.Context, taskID string) (*domain.RawAnalysis, error)
}

// HistoryGateway lists prior uploads, already normalized to the common
// entry shape regardless of which response variant the server returned.
type HistoryGateway interface {
	ListUploads(ctx context.Context) ([]domain.HistoryEntry, error)
}

// TokenStore persists the session token under its well-known key.
// Read returns an empty string when no token is stored; writes must go
// only through the session store's mutators.
type TokenStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}
