package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
	"github.com/sketchcheck/sketchcheck-client/internal/core/ports"
)

// Screen identifies what the presentation layer should render.
type Screen string

const (
	ScreenLogin         Screen = "login"
	ScreenUpload        Screen = "upload"
	ScreenAnalyzing     Screen = "analyzing"
	ScreenResult        Screen = "result"
	ScreenHistoryDetail Screen = "history_detail"
)

// ViewState is the single piece of state a presentation layer needs.
type ViewState struct {
	Screen  Screen
	Session *domain.Session
	History []domain.HistoryEntry
	Task    domain.UploadTask
	Result  *domain.ProjectedResult
	Notice  string
}

// ViewCoordinator composes the session, upload and history stores into
// one view state and mediates protected-navigation decisions. Every
// gate consults the session store's live predicate, never a cached
// flag.
type ViewCoordinator struct {
	sessions  *SessionStore
	orch      *UploadOrchestrator
	history   *HistoryStore
	projector *ResultProjector
	listing   ports.HistoryGateway
	logger    *slog.Logger

	mu     sync.Mutex
	screen Screen
	notice string
	detail *domain.ProjectedResult
}

func NewViewCoordinator(
	sessions *SessionStore,
	orch *UploadOrchestrator,
	history *HistoryStore,
	projector *ResultProjector,
	listing ports.HistoryGateway,
	logger *slog.Logger,
) *ViewCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewCoordinator{
		sessions:  sessions,
		orch:      orch,
		history:   history,
		projector: projector,
		listing:   listing,
		logger:    logger,
		screen:    ScreenLogin,
	}
}

// Start restores a persisted session on process start. With a live
// session the server-side upload history is loaded and the upload
// screen shown; otherwise the login screen.
func (v *ViewCoordinator) Start(ctx context.Context) error {
	session, err := v.sessions.Restore(ctx)
	if err != nil {
		v.setScreen(ScreenLogin)
		return err
	}
	if session == nil {
		v.setScreen(ScreenLogin)
		return nil
	}
	if err := v.RefreshHistory(ctx); err != nil {
		// A cold history list is not worth blocking the session over.
		v.logger.Warn("history_load_failed", "error", err)
	}
	v.setScreen(ScreenUpload)
	return nil
}

// HandleCallback completes the OAuth redirect: the code is exchanged,
// the session installed and the history loaded. Any failure clears the
// partial session and lands on the login screen.
func (v *ViewCoordinator) HandleCallback(ctx context.Context, code string) error {
	if _, err := v.sessions.EstablishFromCode(ctx, code); err != nil {
		v.sessions.Clear(ctx)
		v.setScreen(ScreenLogin)
		return err
	}
	return v.afterLogin(ctx)
}

// HandleToken completes direct token delivery, where the token arrives
// as a URL parameter and is decoded locally for the user fields.
func (v *ViewCoordinator) HandleToken(ctx context.Context, token string) error {
	if _, err := v.sessions.EstablishFromToken(ctx, token); err != nil {
		v.sessions.Clear(ctx)
		v.setScreen(ScreenLogin)
		return err
	}
	return v.afterLogin(ctx)
}

func (v *ViewCoordinator) afterLogin(ctx context.Context) error {
	if err := v.RefreshHistory(ctx); err != nil {
		v.logger.Warn("history_load_failed", "error", err)
	}
	v.setScreen(ScreenUpload)
	return nil
}

// RefreshHistory replaces the history log with the server listing.
func (v *ViewCoordinator) RefreshHistory(ctx context.Context) error {
	entries, err := v.listing.ListUploads(ctx)
	if err != nil {
		return err
	}
	v.history.Load(entries)
	return nil
}

// SubmitSketch runs one upload cycle. The history entry is appended by
// the orchestrator before the result screen becomes visible, so the
// presentation layer never sees a result whose history omits it.
func (v *ViewCoordinator) SubmitSketch(ctx context.Context, sketch domain.Sketch) (*domain.ProjectedResult, error) {
	if !v.sessions.IsAuthenticated(ctx) {
		v.sessions.Clear(ctx)
		v.setScreen(ScreenLogin)
		return nil, domain.WrapError(domain.ErrSessionExpired, "submit sketch",
			errors.New("no live session"))
	}

	v.setScreen(ScreenAnalyzing)
	result, err := v.orch.Submit(ctx, sketch)
	switch {
	case err == nil:
		v.mu.Lock()
		v.screen = ScreenResult
		v.detail = nil
		v.mu.Unlock()
		return result, nil
	case errors.Is(err, ErrSuperseded):
		// A newer cycle owns the screen now.
		return nil, err
	default:
		v.mu.Lock()
		v.screen = ScreenUpload
		v.notice = noticeForError(err)
		v.mu.Unlock()
		return nil, err
	}
}

// OpenHistoryEntry projects a past upload so the detail screen renders
// the same result shape as a live analysis.
func (v *ViewCoordinator) OpenHistoryEntry(ctx context.Context, id string) error {
	if !v.sessions.IsAuthenticated(ctx) {
		v.sessions.Clear(ctx)
		v.setScreen(ScreenLogin)
		return domain.WrapError(domain.ErrSessionExpired, "open history entry",
			errors.New("no live session"))
	}
	raw, err := v.history.SelectEntry(id)
	if err != nil {
		return err
	}
	projected := v.projector.Project(raw)

	v.mu.Lock()
	v.detail = &projected
	v.screen = ScreenHistoryDetail
	v.mu.Unlock()
	return nil
}

// Reset acknowledges a completed or failed cycle and returns to the
// upload screen.
func (v *ViewCoordinator) Reset() {
	v.orch.Reset()
	v.mu.Lock()
	v.detail = nil
	v.screen = ScreenUpload
	v.mu.Unlock()
}

// Logout clears the session (best-effort server call), drops the
// session-scoped history and lands on the login screen.
func (v *ViewCoordinator) Logout(ctx context.Context) {
	v.sessions.Logout(ctx)
	v.orch.Reset()
	v.history.Load(nil)
	v.mu.Lock()
	v.detail = nil
	v.notice = ""
	v.screen = ScreenLogin
	v.mu.Unlock()
}

// DismissNotice clears the visible error notification.
func (v *ViewCoordinator) DismissNotice() {
	v.mu.Lock()
	v.notice = ""
	v.mu.Unlock()
}

// State snapshots everything the presentation layer renders.
func (v *ViewCoordinator) State() ViewState {
	v.mu.Lock()
	screen := v.screen
	notice := v.notice
	detail := v.detail
	v.mu.Unlock()

	result := v.orch.Result()
	if screen == ScreenHistoryDetail {
		result = detail
	}
	return ViewState{
		Screen:  screen,
		Session: v.sessions.Current(),
		History: v.history.Entries(),
		Task:    v.orch.Task(),
		Result:  result,
		Notice:  notice,
	}
}

func (v *ViewCoordinator) setScreen(s Screen) {
	v.mu.Lock()
	v.screen = s
	v.mu.Unlock()
}

func noticeForError(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return "That file can't be analyzed: PNG or JPEG up to 10 MB."
	case domain.IsKind(err, domain.ErrNetworkUnavailable):
		return "Network error. Please check your connection and try again."
	case domain.IsKind(err, domain.ErrScoreRetrieval):
		return "The upload succeeded but the score could not be retrieved."
	case domain.IsKind(err, domain.ErrUploadFailed):
		return "Upload failed. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
