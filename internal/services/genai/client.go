package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultHTTPTimeout = 120 * time.Second
	apiVersion         = "v1beta"
)

// Config captures the runtime settings required to talk to the generation service.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	ImageModel     string
	VideoModel     string
	TimeoutSeconds int
}

func (cfg Config) normalized() Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.ChatModel = strings.TrimSpace(cfg.ChatModel)
	cfg.ImageModel = strings.TrimSpace(cfg.ImageModel)
	cfg.VideoModel = strings.TrimSpace(cfg.VideoModel)
	return cfg
}

// Client wraps the generation service REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithHTTPClient swaps in a caller-owned HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts caps request attempts. The default allows 5.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.maxAttempts = attempts }
}

// WithRetryBackoff sets the exponential backoff window between attempts.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.baseDelay = baseDelay
		c.retry.maxDelay = maxDelay
	}
}

// WithSleeper replaces the wait between attempts; tests use it to observe
// delays without sleeping.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleeper = sleeper }
}

// NewClient constructs a generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg.normalized(),
		httpClient: &http.Client{Timeout: timeout},
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// HealthCheck issues a fast ping to verify the API key and chat model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("genai health: api key required")
	}
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return fmt.Errorf("genai health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("genai health: unexpected response")
	}
	return nil
}

func (c *Client) modelEndpoint(model, verb string) string {
	return fmt.Sprintf("%s/%s/models/%s:%s", c.cfg.BaseURL, apiVersion, url.PathEscape(model), verb)
}

func (c *Client) requestTimeout() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
