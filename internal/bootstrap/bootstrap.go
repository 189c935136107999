package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sketchcheck/sketchcheck-client/internal/config"
	"github.com/sketchcheck/sketchcheck-client/internal/core/usecase"
	"github.com/sketchcheck/sketchcheck-client/internal/infrastructure/api"
	"github.com/sketchcheck/sketchcheck-client/internal/infrastructure/resilience"
	"github.com/sketchcheck/sketchcheck-client/internal/infrastructure/tokenstore/localfs"
	"github.com/sketchcheck/sketchcheck-client/internal/observability/logging"
	"github.com/sketchcheck/sketchcheck-client/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Backend  *api.Client
	Sessions *usecase.SessionStore
	Uploads  *usecase.UploadOrchestrator
	History  *usecase.HistoryStore
	View     *usecase.ViewCoordinator
	Metrics  *metrics.ClientMetrics
}

func New(cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("sketchcheck-client", cfg.LogLevel)

	tokens, err := localfs.New(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}

	clientMetrics := metrics.NewClientMetrics("sketchcheck-client")

	resCfg := resilience.DefaultConfig()
	resCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	resCfg.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenSecs) * time.Second
	resCfg.BreakerMinRequests = uint32(cfg.BreakerMinSamples)

	backend := api.New(api.Options{
		BaseURL:          cfg.BackendURL,
		Timeout:          cfg.HTTPTimeout(),
		Tokens:           tokens,
		Resilience:       resCfg,
		RateLimitPerSec:  cfg.RateLimitPerSec,
		RateLimitBurst:   cfg.RateLimitBurst,
		OAuthClientID:    cfg.OAuthClientID,
		OAuthRedirectURL: cfg.OAuthRedirectURL,
		Logger:           logger,
	})

	sessions := usecase.NewSessionStore(tokens, backend, logger)
	projector := usecase.NewResultProjector()
	history := usecase.NewHistoryStore()
	orchestrator := usecase.NewUploadOrchestrator(backend, projector, history, clientMetrics, logger, cfg.SettleDelay())
	view := usecase.NewViewCoordinator(sessions, orchestrator, history, projector, backend, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Backend:  backend,
		Sessions: sessions,
		Uploads:  orchestrator,
		History:  history,
		View:     view,
		Metrics:  clientMetrics,
	}, nil
}
