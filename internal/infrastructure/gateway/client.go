package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/infrastructure/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Config contains the gateway connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the single path to the remote transcription service. It attaches
// the bearer token when one is active and normalises every failure into the
// domain error taxonomy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a gateway client. httpClient may be nil, in which case one with
// cfg.Timeout is created.
func New(cfg Config, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}, nil
}

// SetToken replaces the active bearer token. Requests already built keep the
// header they were built with.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.newRequest(ctx, method, path, bytes.NewReader(data), "application/json")
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any) error {
	start := time.Now()
	outcome := "ok"
	status := 0
	defer func() {
		elapsed := time.Since(start)
		metrics.GatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
		metrics.GatewayRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
		c.log.Debug().
			Str("operation", op).
			Str("request_id", req.Header.Get("X-Request-ID")).
			Int("status", status).
			Str("outcome", outcome).
			Dur("duration", elapsed).
			Msg("gateway request")
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome = "canceled"
			return ctxErr
		}
		outcome = "network_error"
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode == http.StatusUnauthorized {
		outcome = "unauthorized"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if detail := errorDetail(body); detail != "" {
			return fmt.Errorf("%s: %w: %s", op, domain.ErrUnauthorized, detail)
		}
		return fmt.Errorf("%s: %w", op, domain.ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "server_error"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorDetail(body)
		if msg == "" {
			msg = defaultErrorMessage
		}
		return &domain.ServerError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome = "canceled"
			return ctxErr
		}
		outcome = "server_error"
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, username, password string) (*domain.UserProfile, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/register", registerRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	var resp profileResponse
	if err := c.do(ctx, "register", req, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// Login exchanges credentials for a bearer token. The form encoding matches
// the OAuth2 password flow the server expects.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var resp tokenResponse
	if err := c.do(ctx, "login", req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("login: response carried no access token")
	}
	return resp.AccessToken, nil
}

// FetchProfile returns the profile of the token's owner.
func (c *Client) FetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me/", nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var resp profileResponse
	if err := c.do(ctx, "fetch_profile", req, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// ListJobs returns every job of the authenticated user.
func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me/jobs/", nil, "")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	var resp []jobResponse
	if err := c.do(ctx, "list_jobs", req, &resp); err != nil {
		return nil, err
	}
	return toDomainJobs(resp), nil
}

// GetJob returns a single job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me/jobs/"+url.PathEscape(jobID)+"/", nil, "")
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var resp jobResponse
	if err := c.do(ctx, "get_job", req, &resp); err != nil {
		return nil, err
	}
	job := resp.toDomain()
	return &job, nil
}
