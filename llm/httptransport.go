package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (anthropic, ollama).
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API endpoint URL (empty for provider defaults).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the identifier sent to the provider.
	Model string `json:"model" yaml:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// HTTPTransport is the shipped Transport implementation: it resolves model
// names to provider endpoints and executes HTTP requests with in-place retry
// for transient failures. Unknown models fail as unavailable so the fallback
// wrapper can walk its chain.
type HTTPTransport struct {
	endpoints   map[string]EndpointConfig
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) TransportOption {
	return func(t *HTTPTransport) {
		t.retryConfig = cfg
	}
}

// WithTransportLogger sets the logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates a transport over the given model endpoints.
func NewHTTPTransport(endpoints map[string]EndpointConfig, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoints:   endpoints,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for long completions
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Invoke implements Transport.
func (t *HTTPTransport) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	endpoint, ok := t.endpoints[req.Model]
	if !ok {
		return nil, NewUnavailableError(req.Model, fmt.Errorf("no endpoint configured"))
	}

	provider := GetProvider(endpoint.Provider)
	if provider == nil {
		return nil, NewUnavailableError(req.Model, fmt.Errorf("unknown provider: %s", endpoint.Provider))
	}

	requestID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= t.retryConfig.MaxAttempts; attempt++ {
		resp, err := t.doRequest(ctx, provider, endpoint, req)
		if err == nil {
			resp.RequestID = requestID
			resp.Usage.ContextWindowSize = endpoint.MaxTokens
			return resp, nil
		}

		lastErr = err

		// Only transient failures are retried in place; everything else
		// propagates for the caller to classify.
		if !IsTransient(err) {
			return nil, err
		}

		if attempt < t.retryConfig.MaxAttempts {
			backoff := t.calculateBackoff(attempt)
			t.logger.Debug("Request failed, retrying",
				"model", req.Model,
				"attempt", attempt,
				"max_attempts", t.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, lastErr
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents thundering herd when multiple clients retry simultaneously.
func (t *HTTPTransport) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= t.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(t.retryConfig.BackoffBase) * multiplier)
	if backoff > t.retryConfig.MaxBackoff {
		backoff = t.retryConfig.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// doRequest executes a single HTTP request to the model endpoint.
func (t *HTTPTransport) doRequest(ctx context.Context, provider Provider, ep EndpointConfig, req InvokeRequest) (*InvokeResult, error) {
	url := provider.BuildURL(ep.URL)

	body, err := provider.BuildRequestBody(ep.Model, req.SystemPrompt, req.Messages,
		req.Temperature, req.MaxTokens, req.Tools)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}

	t.logger.Debug("Sending model request",
		"provider", provider.Name(),
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages),
		"tools", len(req.Tools))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Network errors are transient.
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(ep.Model, httpResp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// classifyHTTPError maps HTTP status codes to the error taxonomy.
func classifyHTTPError(model string, statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("model API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusNotFound:
		// The model is not being served; the fallback chain applies.
		return NewUnavailableError(model, err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return NewAuthError(err)
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	default:
		return err
	}
}
