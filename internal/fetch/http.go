package fetch

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxErrorBodySize = 1024
	maxResponseSize  = 10 * 1024 * 1024
)

// NewTransport returns the base transport used by both service clients.
func NewTransport(insecureSkipVerify bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-hosted servers
	}
	return transport
}

// NewLimiter paces requests. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// Requester performs paced GET requests and decodes JSON bodies.
type Requester struct {
	Service    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// GetJSON sends req and decodes a 200 response into v.
func (r *Requester) GetJSON(req *http.Request, v any) error {
	ctx := req.Context()
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.HTTPClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.ErrorContext(ctx, "request failed", "service", r.Service, "url", req.URL.String(), "error", err, "elapsed", elapsed)
		return fmt.Errorf("%s request failed: %w", r.Service, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.DebugContext(ctx, "failed to close response body", "error", closeErr)
		}
	}()

	logger.DebugContext(ctx, "response received",
		"service", r.Service,
		"status", resp.StatusCode,
		"url", req.URL.String(),
		"elapsed", elapsed)

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			body = []byte("failed to read response body")
		}
		return &APIError{
			Service:    r.Service,
			URL:        req.URL.String(),
			Status:     resp.Status,
			Body:       string(body),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.Service, err)
	}

	return nil
}
