// Package genai wraps the OpenAI-compatible completion endpoint used to
// generate posts.
//
// The client applies a per-attempt timeout, retries transient failures a
// bounded number of times with backoff, and validates that the endpoint
// returned actual content. Responses are never cached; a repeated request
// for the same topic deliberately produces a fresh rendering.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/postpilot/PostPilot/internal/models"
)

// Default configuration constants
const (
	// DefaultModel is the completion model used when none is configured.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultTemperature is the sampling temperature for post generation.
	DefaultTemperature = 0.8
	// DefaultTimeout bounds each completion attempt. WithTimeout(0) disables
	// the bound for deployments that prefer unbounded calls.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the number of additional attempts after the first.
	DefaultMaxRetries = 2
	// initialBackoff is the delay before the first retry; it doubles per attempt.
	initialBackoff = 500 * time.Millisecond
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiChatService adapts the openai-go client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s openaiChatService) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return s.client.Chat.Completions.New(ctx, params)
}

// Opts holds configuration options for the completion client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	ProxyURL    string
	MaxRetries  int
	DebugDir    string

	timeout    time.Duration
	timeoutSet bool
	tempSet    bool
	retriesSet bool
}

// Option defines a configuration option for the completion client.
type Option func(*Opts)

// WithAPIKey sets the completion endpoint credential.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithBaseURL points the client at a non-default completion endpoint,
// such as a local vLLM deployment.
func WithBaseURL(u string) Option {
	return func(o *Opts) {
		o.BaseURL = u
	}
}

// WithModel sets the target model identifier.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) {
		o.Temperature = t
		o.tempSet = true
	}
}

// WithTimeout bounds each completion attempt. A zero duration disables the
// per-attempt timeout entirely.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithMaxRetries sets the number of additional attempts after the first.
func WithMaxRetries(n int) Option {
	return func(o *Opts) {
		o.MaxRetries = n
		o.retriesSet = true
	}
}

// WithProxy routes outbound completion traffic through an HTTP proxy.
func WithProxy(proxyURL string) Option {
	return func(o *Opts) {
		o.ProxyURL = proxyURL
	}
}

// WithDebugDir enables JSON capture of each request/response pair under the
// given directory for troubleshooting.
func WithDebugDir(dir string) Option {
	return func(o *Opts) {
		o.DebugDir = dir
	}
}

// Client wraps the completion endpoint for generating posts.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	debugDir    string
}

// NewClient initializes a completion client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI NewClient: no API key configured")
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	// The retry loop below classifies failures itself, so the SDK's own
	// retry layer is disabled to keep the attempt bound explicit.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			slog.Error("GenAI NewClient: invalid proxy URL", "error", err)
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := DefaultTemperature
	if cfg.tempSet {
		temperature = cfg.Temperature
	}
	timeout := DefaultTimeout
	if cfg.timeoutSet {
		timeout = cfg.timeout
	}
	maxRetries := DefaultMaxRetries
	if cfg.retriesSet {
		maxRetries = cfg.MaxRetries
	}

	slog.Debug("GenAI NewClient configured",
		"model", model,
		"base_url_set", cfg.BaseURL != "",
		"proxy_set", cfg.ProxyURL != "",
		"timeout", timeout,
		"max_retries", maxRetries,
		"debug_enabled", cfg.DebugDir != "")

	return &Client{
		chat:        openaiChatService{client: openai.NewClient(reqOpts...)},
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		maxRetries:  maxRetries,
		debugDir:    cfg.DebugDir,
	}, nil
}

// GeneratePost sends the prompt to the completion endpoint and returns the
// generated text. Transient failures are retried up to the configured bound
// with backoff; terminal failures surface immediately.
func (c *Client) GeneratePost(ctx context.Context, prompt models.Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(c.temperature),
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("GenAI GeneratePost retrying after transient failure",
				"attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", models.UpstreamTimeout(ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := c.attempt(ctx, params)
		if err == nil {
			slog.Debug("GenAI GeneratePost succeeded", "attempts", attempt+1, "content_length", len(text))
			return text, nil
		}
		lastErr = err

		var be *models.BotError
		if errors.As(err, &be) {
			// Already classified (empty response); never retried.
			return "", err
		}
		if !isTransient(err) {
			slog.Error("GenAI GeneratePost terminal upstream failure", "error", err)
			return "", models.UpstreamRejected(err)
		}
	}

	slog.Error("GenAI GeneratePost retries exhausted", "attempts", c.maxRetries+1, "error", lastErr)
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return "", models.UpstreamTimeout(lastErr)
	}
	return "", models.UpstreamRejected(lastErr)
}

// attempt performs a single bounded completion call and validates the response.
func (c *Client) attempt(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.chat.New(attemptCtx, params)
	if err != nil {
		return "", err
	}
	if c.debugDir != "" {
		go c.writeDebugLog("GeneratePost", params, resp)
	}
	if len(resp.Choices) == 0 {
		return "", models.UpstreamEmptyResponse()
	}
	content := strings.TrimSpace(StripReasoning(resp.Choices[0].Message.Content))
	if content == "" {
		return "", models.UpstreamEmptyResponse()
	}
	return content, nil
}

// isTransient reports whether an upstream failure is expected to resolve on
// retry: per-attempt timeouts, connection failures, rate limiting, and
// server-side errors. Authentication and malformed-request rejections are
// terminal, as is cancellation by the caller.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return true
		}
		return false
	}
	// Anything without an upstream status is assumed to be a connection
	// failure that a fresh attempt may get past.
	return true
}

// StripReasoning drops model reasoning enclosed before </think> if present.
// Some reasoning models prepend their chain of thought to the content.
func StripReasoning(text string) string {
	if _, rest, found := strings.Cut(text, "</think>"); found {
		return strings.TrimLeft(rest, " \t\n")
	}
	return text
}
