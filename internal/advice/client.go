// Package advice talks to the external advice endpoint and provides a
// rule-based stand-in for running without it.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/resilience"
)

var (
	// ErrBackendUnreachable covers network failures, non-2xx replies,
	// undecodable bodies and an open breaker.
	ErrBackendUnreachable = errors.New("advice backend unreachable")

	// ErrNoAdvice is returned when the endpoint replies without an answer.
	ErrNoAdvice = errors.New("no advice in response")
)

// DefaultSnippetLimit bounds the page text sent with a request.
const DefaultSnippetLimit = 10000

// Request is the body of POST /advice.
type Request struct {
	URL      string            `json:"url"`
	Question string            `json:"question"`
	Snippet  string            `json:"snippet"`
	Profile  json.RawMessage   `json:"profile"`
	Context  domain.ContextTag `json:"context"`
}

// Extracted holds figures the endpoint pulled out of the page.
type Extracted struct {
	InterestRatePct *float64 `json:"interest_rate_pct,omitempty"`
}

// Response is the decoded reply of POST /advice.
type Response struct {
	Answer    string     `json:"answer"`
	Summary   string     `json:"summary,omitempty"`
	Decision  string     `json:"decision,omitempty"`
	Extracted *Extracted `json:"extracted,omitempty"`
}

// InterestRate returns the extracted rate, if any.
func (r *Response) InterestRate() *float64 {
	if r == nil || r.Extracted == nil {
		return nil
	}
	return r.Extracted.InterestRatePct
}

// Advisor answers a question about a page.
type Advisor interface {
	Advise(ctx context.Context, req Request) (*Response, error)
}

// Config for the remote client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimitRPM int
	SnippetLimit int
	MaxFailures  int
	BreakerReset time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8787",
		Timeout:      30 * time.Second,
		RateLimitRPM: 30,
		SnippetLimit: DefaultSnippetLimit,
		MaxFailures:  5,
		BreakerReset: 30 * time.Second,
	}
}

// Client posts questions to the advice endpoint. A failed attempt is not
// retried.
type Client struct {
	baseURL      string
	snippetLimit int
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	breaker      *resilience.Breaker
	logger       *zap.Logger
}

// NewClient creates a remote advice client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimitRPM == 0 {
		cfg.RateLimitRPM = def.RateLimitRPM
	}
	if cfg.SnippetLimit == 0 {
		cfg.SnippetLimit = def.SnippetLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := resilience.New(resilience.Config{
		Name:        "advice",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.BreakerReset,
		IsFailure: func(err error) bool {
			// an empty answer means the backend is up
			return err != nil && !errors.Is(err, ErrNoAdvice) && !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		snippetLimit: cfg.SnippetLimit,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPM)/60.0), 1),
		breaker:     breaker,
		logger:      logger,
	}
}

// Breaker exposes the client's circuit breaker for health reporting
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// Advise sends req to <base>/advice.
func (c *Client) Advise(ctx context.Context, req Request) (*Response, error) {
	req.Snippet = Truncate(req.Snippet, c.snippetLimit)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var resp *Response
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.post(ctx, req)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/advice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrBackendUnreachable, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrBackendUnreachable, httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrBackendUnreachable, err)
	}
	if resp.Answer == "" {
		return nil, ErrNoAdvice
	}

	c.logger.Debug("advice received",
		zap.String("context", string(req.Context)),
		zap.Int("answer_len", len(resp.Answer)),
		zap.String("decision", resp.Decision),
	)
	return &resp, nil
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
