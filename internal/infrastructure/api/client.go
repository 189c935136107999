package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/sketchcheck/sketchcheck-client/internal/core/domain"
	"github.com/sketchcheck/sketchcheck-client/internal/core/ports"
	"github.com/sketchcheck/sketchcheck-client/internal/infrastructure/resilience"
)

// Client talks to the SketchCheck backend. It implements the auth,
// upload and history gateways consumed by the core.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     ports.TokenStore
	exec       *resilience.Executor
	limiter    *rate.Limiter
	logger     *slog.Logger
	oauth      *oauth2.Config
}

type Options struct {
	BaseURL          string
	Timeout          time.Duration
	Tokens           ports.TokenStore
	Resilience       resilience.Config
	RateLimitPerSec  float64
	RateLimitBurst   int
	OAuthClientID    string
	OAuthRedirectURL string
	Logger           *slog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RateLimitPerSec > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), burst)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    trimTrailingSlash(opts.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     opts.Tokens,
		exec:       resilience.NewExecutor(opts.Resilience),
		limiter:    limiter,
		logger:     logger,
		oauth: &oauth2.Config{
			ClientID:    opts.OAuthClientID,
			RedirectURL: opts.OAuthRedirectURL,
			Scopes:      []string{"openid", "email", "profile"},
			Endpoint:    google.Endpoint,
		},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// LoginURL builds the Google authorization URL the user is sent to.
func (c *Client) LoginURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode resolves the OAuth authorization code through the
// backend. Both observed response variants are accepted: the token may
// arrive as "accessToken" or "token".
func (c *Client) ExchangeCode(ctx context.Context, code string) (domain.AuthGrant, error) {
	grant, err := resilience.Run(ctx, c.exec, "auth_exchange", func(ctx context.Context) (domain.AuthGrant, error) {
		var payload struct {
			User        domain.User `json:"user"`
			AccessToken string      `json:"accessToken"`
			Token       string      `json:"token"`
			Message     string      `json:"message"`
		}
		query := url.Values{"code": {code}}
		if err := c.getJSON(ctx, "/auth/callback", query, &payload, "auth_exchange"); err != nil {
			return domain.AuthGrant{}, err
		}
		token := payload.AccessToken
		if token == "" {
			token = payload.Token
		}
		if token == "" {
			return domain.AuthGrant{}, domain.WrapError(domain.ErrInvalidTokenFormat, "auth exchange",
				errors.New("exchange response carried no token"))
		}
		return domain.AuthGrant{Token: token, User: payload.User}, nil
	}, classifyTransportError)
	if err != nil {
		return domain.AuthGrant{}, wrapGatewayError("exchange authorization code", err)
	}
	return grant, nil
}

// Logout notifies the backend. Callers treat failures as non-blocking.
func (c *Client) Logout(ctx context.Context) error {
	err := c.postJSON(ctx, "/api/auth/logout", struct{}{}, nil, "logout")
	return wrapGatewayError("logout", err)
}

// Upload posts one sketch as multipart form data. The response is
// either an envelope with the analysis inline or a bare
// acknowledgement carrying a task id.
func (c *Client) Upload(ctx context.Context, sketch domain.Sketch) (*domain.UploadReceipt, error) {
	body, contentType, err := multipartBody("file", sketch.FileName, sketch.MimeType, sketch.Data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUploadFailed, "build upload body", err)
	}

	receipt, err := resilience.Run(ctx, c.exec, "upload", func(ctx context.Context) (*domain.UploadReceipt, error) {
		var raw json.RawMessage
		if err := c.postMultipart(ctx, "/upload", body, contentType, &raw, "upload"); err != nil {
			return nil, err
		}
		return decodeUploadResponse(raw)
	}, classifyTransportError)
	if err != nil {
		return nil, wrapGatewayError("upload sketch", err)
	}
	c.logger.Debug("upload_accepted", "file", sketch.FileName, "task_id", receipt.TaskID,
		"inline_analysis", receipt.Analysis != nil)
	return receipt, nil
}

// FetchScore retrieves the analysis for an acknowledged upload after
// the settling delay.
func (c *Client) FetchScore(ctx context.Context, taskID string) (*domain.RawAnalysis, error) {
	analysis, err := resilience.Run(ctx, c.exec, "fetch_score", func(ctx context.Context) (*domain.RawAnalysis, error) {
		query := url.Values{}
		if taskID != "" {
			query.Set("task_id", taskID)
		}
		var raw json.RawMessage
		if err := c.getJSON(ctx, "/score", query, &raw, "fetch_score"); err != nil {
			return nil, err
		}
		return decodeAnalysisPayload(raw)
	}, classifyTransportError)
	if err != nil {
		return nil, wrapGatewayError("fetch score", err)
	}
	return analysis, nil
}

// ListUploads fetches prior uploads and normalizes the response to the
// common history shape; field-name drift between backend versions
// stops here.
func (c *Client) ListUploads(ctx context.Context) ([]domain.HistoryEntry, error) {
	entries, err := resilience.Run(ctx, c.exec, "list_uploads", func(ctx context.Context) ([]domain.HistoryEntry, error) {
		var items []historyItem
		if err := c.getJSON(ctx, "/myuploads", nil, &items, "list_uploads"); err != nil {
			return nil, err
		}
		return normalizeHistory(items), nil
	}, classifyTransportError)
	if err != nil {
		return nil, wrapGatewayError("list uploads", err)
	}
	return entries, nil
}

// Ping checks backend reachability.
func (c *Client) Ping(ctx context.Context) error {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &payload, "health"); err != nil {
		return wrapGatewayError("health check", err)
	}
	return nil
}

// uploadItem is one element of the upload response envelope.
type uploadItem struct {
	UserID        string   `json:"user_id"`
	ImageURL      string   `json:"image_url"`
	DebugImageURL string   `json:"debug_image_url"`
	Score         *float64 `json:"score"`
	AIResult      struct {
		Analysis domain.RawAnalysis `json:"analysis"`
		Message  string             `json:"message"`
	} `json:"ai_result"`
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (it uploadItem) toAnalysis() *domain.RawAnalysis {
	analysis := it.AIResult.Analysis
	switch {
	case it.Score != nil:
		analysis.Score = *it.Score
	case analysis.Score == 0 && analysis.Summary.Score != 0:
		analysis.Score = analysis.Summary.Score
	}
	analysis.ImageURL = it.ImageURL
	analysis.DebugImageURL = it.DebugImageURL
	return &analysis
}

func decodeUploadResponse(raw json.RawMessage) (*domain.UploadReceipt, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty upload response")
	}

	var items []uploadItem
	if err := json.Unmarshal(raw, &items); err == nil {
		if len(items) == 0 {
			return nil, fmt.Errorf("upload response envelope is empty")
		}
		return &domain.UploadReceipt{TaskID: items[0].TaskID, Analysis: items[0].toAnalysis()}, nil
	}

	var item uploadItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if item.TaskID != "" && item.Score == nil && len(item.AIResult.Analysis.Violations) == 0 &&
		item.AIResult.Analysis.Summary == (domain.AnalysisSummary{}) {
		// Bare acknowledgement: the analysis arrives via FetchScore.
		return &domain.UploadReceipt{TaskID: item.TaskID}, nil
	}
	return &domain.UploadReceipt{TaskID: item.TaskID, Analysis: item.toAnalysis()}, nil
}

func decodeAnalysisPayload(raw json.RawMessage) (*domain.RawAnalysis, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty score response")
	}

	var items []uploadItem
	if err := json.Unmarshal(raw, &items); err == nil {
		if len(items) == 0 {
			return nil, fmt.Errorf("score response envelope is empty")
		}
		return items[0].toAnalysis(), nil
	}

	var item uploadItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	return item.toAnalysis(), nil
}
