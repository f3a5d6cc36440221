// Package tika is the extractor client for a Tika-style HTTP
// extraction service: raw bytes in, plain text and metadata out.
//
// The service contract is opaque to the rest of the system. All the
// caller sees are classified failures (connection, timeout,
// unprocessable) and the circuit breaker guarding the endpoint.
package tika

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Extractor = (*Client)(nil)

// DefaultTimeout bounds one extraction call. A timeout converts to a
// timeout failure and feeds the circuit breaker.
const DefaultTimeout = 30 * time.Second

// Default request rate toward the extraction service.
const (
	defaultRequestsPerSecond = 5.0
	defaultBurst             = 10
)

// Config configures the extractor client.
type Config struct {
	// BaseURL is the extraction service root, e.g. "http://localhost:9998".
	BaseURL string

	// Timeout bounds a single extraction call. Zero selects DefaultTimeout.
	Timeout time.Duration

	// FailureThreshold and Cooldown configure the circuit breaker.
	// Zero values select the breaker defaults.
	FailureThreshold int
	Cooldown         time.Duration

	// RequestsPerSecond and Burst configure the client-side rate
	// limiter. Zero values select conservative defaults.
	RequestsPerSecond float64
	Burst             int
}

// Client calls the extraction service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
	timeout time.Duration
}

// NewClient creates an extractor client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: NewCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown),
		timeout: timeout,
	}
}

// Extract submits bytes with their MIME type and returns extracted
// text and metadata. Connection and timeout failures feed the circuit
// breaker; unprocessable documents do not.
func (c *Client) Extract(ctx context.Context, data []byte, mimeType string) (*driven.ExtractionResult, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		// A cancelled wait says nothing about the service's health.
		c.breaker.ReleaseProbe()
		return nil, domain.NewExtractionError(domain.FailureConnection, err)
	}

	text, err := c.extractText(ctx, data, mimeType)
	if err != nil {
		if domain.AffectsBreaker(err) {
			c.breaker.RecordFailure()
		} else {
			// The service answered; an unprocessable document must not
			// keep a half-open probe slot occupied.
			c.breaker.ReleaseProbe()
		}
		return nil, err
	}
	c.breaker.RecordSuccess()

	// Metadata extraction is best-effort: its failure never fails the
	// task, matching the service's own behaviour for partial results.
	metadata, err := c.extractMetadata(ctx, data, mimeType)
	if err != nil {
		logger.Warn("metadata extraction failed: %v", err)
		metadata = nil
	}

	return &driven.ExtractionResult{Text: text, Metadata: metadata}, nil
}

// extractText calls the text endpoint (PUT body, Accept: text/plain).
func (c *Client) extractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	body, err := c.put(ctx, c.baseURL+"/tika", data, mimeType, "text/plain")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// extractMetadata calls the metadata endpoint (PUT body, Accept: JSON).
func (c *Client) extractMetadata(ctx context.Context, data []byte, mimeType string) (map[string]any, error) {
	body, err := c.put(ctx, c.baseURL+"/meta", data, mimeType, "application/json")
	if err != nil {
		return nil, err
	}
	var metadata map[string]any
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return metadata, nil
}

// put performs one classified call against the service.
func (c *Client) put(ctx context.Context, url string, data []byte, contentType, accept string) ([]byte, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewExtractionError(domain.FailureConnection, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusUnsupportedMediaType:
		return nil, domain.NewExtractionError(domain.FailureUnprocessable,
			fmt.Errorf("extractor rejected document: %d %s", resp.StatusCode, strings.TrimSpace(string(body))))
	default:
		return nil, domain.NewExtractionError(domain.FailureConnection,
			fmt.Errorf("extractor returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
}

// classifyTransportError maps a transport failure to its domain
// classification.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewExtractionError(domain.FailureTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewExtractionError(domain.FailureTimeout, err)
	}
	return domain.NewExtractionError(domain.FailureConnection, err)
}

// State returns the circuit breaker state.
func (c *Client) State() string {
	return c.breaker.State()
}

// Cooldown returns the breaker's remaining open time.
func (c *Client) Cooldown() time.Duration {
	return c.breaker.Cooldown()
}

// Ping checks that the extraction service is reachable via its
// version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extractor version endpoint returned %d", resp.StatusCode)
	}
	return nil
}
