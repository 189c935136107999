package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
	"github.com/sketchcheck/sketchcheck-client/internal/core/ports"
)

// SessionStore owns the authentication token and the identity derived
// from it. It is the only writer of the persisted token; every gating
// decision goes through IsAuthenticated, which re-reads storage rather
// than trusting a cached flag, because an OAuth redirect can land a
// fresh token outside this store's own mutators.
type SessionStore struct {
	tokens ports.TokenStore
	auth   ports.AuthGateway
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *domain.Session
}

func NewSessionStore(tokens ports.TokenStore, auth ports.AuthGateway, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		tokens: tokens,
		auth:   auth,
		logger: logger,
		now:    time.Now,
	}
}

// Establish stores the token alongside an already-known user identity.
// The token must still decode into three segments with a valid JSON
// payload and must not be expired.
func (s *SessionStore) Establish(ctx context.Context, token string, user domain.User) (*domain.Session, error) {
	claims, err := decodeToken(token)
	if err != nil {
		return nil, err
	}
	return s.install(ctx, token, user, claims.expiresAt)
}

// EstablishFromToken handles direct token delivery: the user identity
// is read from the token's own claims.
func (s *SessionStore) EstablishFromToken(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := decodeToken(token)
	if err != nil {
		return nil, err
	}
	return s.install(ctx, token, claims.user, claims.expiresAt)
}

// EstablishFromCode exchanges an authorization code with the backend
// and installs the resulting session. When the exchange response omits
// user fields they are recovered from the token claims.
func (s *SessionStore) EstablishFromCode(ctx context.Context, code string) (*domain.Session, error) {
	grant, err := s.auth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	claims, err := decodeToken(grant.Token)
	if err != nil {
		return nil, err
	}
	user := grant.User
	if user.ID == "" {
		user = claims.user
	}
	return s.install(ctx, grant.Token, user, claims.expiresAt)
}

func (s *SessionStore) install(ctx context.Context, token string, user domain.User, expiresAt time.Time) (*domain.Session, error) {
	session := &domain.Session{Token: token, User: user, ExpiresAt: expiresAt}
	if session.Expired(s.now()) {
		return nil, domain.WrapError(domain.ErrSessionExpired, "establish session", errors.New("token exp claim has passed"))
	}
	if err := s.tokens.Write(ctx, token); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidTokenFormat, "persist token", err)
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.logger.Info("session_established", "user_id", user.ID, "expires_at", expiresAt)
	return session, nil
}

// Restore reads the persisted token on process start. A missing token
// yields a nil session; a malformed or expired one is cleared and also
// yields nil.
func (s *SessionStore) Restore(ctx context.Context) (*domain.Session, error) {
	token, err := s.tokens.Read(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "read persisted token", err)
	}
	if token == "" {
		return nil, nil
	}

	claims, err := decodeToken(token)
	if err != nil {
		s.logger.Warn("session_restore_discarded", "reason", "malformed token")
		s.Clear(ctx)
		return nil, nil
	}
	session := &domain.Session{Token: token, User: claims.user, ExpiresAt: claims.expiresAt}
	if session.Expired(s.now()) {
		s.logger.Info("session_restore_discarded", "reason", "expired")
		s.Clear(ctx)
		return nil, nil
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.logger.Info("session_restored", "user_id", session.User.ID)
	return session, nil
}

// Clear removes the persisted token and the in-memory session.
// Idempotent.
func (s *SessionStore) Clear(ctx context.Context) {
	if err := s.tokens.Delete(ctx); err != nil {
		s.logger.Warn("token_delete_failed", "error", err)
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// IsAuthenticated is the authoritative gating predicate: a persisted
// token exists, decodes, and is not expired. It never consults the
// cached session.
func (s *SessionStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.tokens.Read(ctx)
	if err != nil || token == "" {
		return false
	}
	claims, err := decodeToken(token)
	if err != nil {
		return false
	}
	session := domain.Session{Token: token, ExpiresAt: claims.expiresAt}
	return !session.Expired(s.now())
}

// Current returns the in-memory session, which may lag the persisted
// token; use IsAuthenticated for gating.
func (s *SessionStore) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Logout notifies the backend and clears local state. A failed
// backend call never blocks the local clearing.
func (s *SessionStore) Logout(ctx context.Context) {
	if err := s.auth.Logout(ctx); err != nil {
		s.logger.Warn("logout_request_failed", "error", err)
	}
	s.Clear(ctx)
}

type tokenClaims struct {
	user      domain.User
	expiresAt time.Time
}

// decodeToken splits the token on ".", base64url-decodes the payload
// segment and parses it as JSON. The three-segment requirement is
// strict. No signature verification happens client-side; the backend
// remains the authority.
func decodeToken(token string) (tokenClaims, error) {
	if strings.Count(token, ".") != 2 {
		return tokenClaims{}, domain.WrapError(domain.ErrInvalidTokenFormat, "decode token",
			errors.New("token is not three dot-separated segments"))
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenClaims{}, domain.WrapError(domain.ErrInvalidTokenFormat, "decode token", err)
	}

	out := tokenClaims{
		user: domain.User{
			ID:      firstClaimString(claims, "sub", "user_id"),
			Name:    firstClaimString(claims, "name"),
			Email:   firstClaimString(claims, "email"),
			Picture: firstClaimString(claims, "picture"),
		},
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.expiresAt = exp.Time
	}
	return out, nil
}

func firstClaimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
