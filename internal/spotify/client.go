package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/maestro/internal/shared"
	"golang.org/x/time/rate"
)

// BaseURL is the Spotify Web API root.
const BaseURL = "https://api.spotify.com/v1"

const defaultTimeout = 10 * time.Second

// TokenProvider supplies bearer tokens for outbound calls.
//
// EnsureValidToken is called before each request; ForceRefresh when the API
// rejects a token that appeared valid.
type TokenProvider interface {
	EnsureValidToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// Outcome classifies an HTTP response from the Spotify API.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTokenExpired
	OutcomeForbidden
	OutcomeNotFound
	OutcomeRateLimited
	OutcomeServerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTokenExpired:
		return "token-expired"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeRateLimited:
		return "rate-limited"
	default:
		return "server-error"
	}
}

// Response is a classified API response.
type Response struct {
	StatusCode int
	Outcome    Outcome
	Body       []byte
	RetryAfter time.Duration // rate-limited hint, zero otherwise
	Err        error         // transport error detail for server-error outcomes
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/me/player/play"
	Query  url.Values
	Body   any  // JSON-encoded when non-nil
	NoAuth bool // skip the bearer token (bootstrap only)
}

// Client executes authenticated calls against the Spotify Web API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenProvider
	Limiter    *rate.Limiter
	Logger     *log.Logger
}

// NewClient creates a new Client with the provided options.
//
// The HTTP client defaults to a 10 second timeout so no call can block
// indefinitely; timeouts classify as server-error.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(10), 10)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// Do executes one classified API call.
//
// On a token-expired response it forces a single refresh and reissues the same
// request exactly once; a second token-expired response returns
// [shared.ErrNotAuthenticated]. All other outcomes are returned to the caller
// unretried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var token string
	if !req.NoAuth {
		var err error
		if token, err = c.tokens.EnsureValidToken(ctx); err != nil {
			return nil, err
		}
	}

	resp := c.send(ctx, req, token)

	if resp.Outcome == OutcomeTokenExpired && !req.NoAuth {
		c.logger.Warn("token rejected mid-call, forcing refresh", "path", req.Path)

		refreshed, err := c.tokens.ForceRefresh(ctx)
		if err != nil {
			return nil, err
		}

		resp = c.send(ctx, req, refreshed)
		if resp.Outcome == OutcomeTokenExpired {
			return nil, fmt.Errorf("%w: token rejected after refresh", shared.ErrNotAuthenticated)
		}
	}

	return resp, nil
}

// send issues the HTTP request once and classifies the result.
func (c *Client) send(ctx context.Context, req Request, token string) *Response {
	apiURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		apiURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &Response{Outcome: OutcomeServerError, Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, apiURL, body)
	if err != nil {
		return &Response{Outcome: OutcomeServerError, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "path", req.Path, "error", err)
		return &Response{Outcome: OutcomeServerError, Err: classifyTransportError(err)}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Response{StatusCode: httpResp.StatusCode, Outcome: OutcomeServerError, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: data}
	resp.Outcome = classifyStatus(httpResp.StatusCode)

	if resp.Outcome == OutcomeRateLimited {
		resp.RetryAfter = parseRetryAfter(httpResp.Header.Get("Retry-After"))
	}

	return resp
}

// classifyStatus maps an HTTP status code to an [Outcome].
func classifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == http.StatusUnauthorized:
		return OutcomeTokenExpired
	case status == http.StatusForbidden:
		return OutcomeForbidden
	case status == http.StatusNotFound:
		return OutcomeNotFound
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited
	default:
		return OutcomeServerError
	}
}

// classifyTransportError tags timeouts so callers see them as server-error with detail.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return err
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
