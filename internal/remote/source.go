// Package remote fetches pages of records from a paginated HTTP endpoint.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/maruel/pagetable/internal/record"
)

// Window is a half-open slice [Offset, Offset+Limit) of the remote list.
type Window struct {
	Offset int
	Limit  int
}

// Source returns the records of a window.
type Source interface {
	Fetch(ctx context.Context, w Window) (record.Dataset, error)
}

// FetchError is returned when a page could not be obtained: a transport
// failure (Status == 0) or a non-2xx status.
type FetchError struct {
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return "HTTP error: " + strconv.Itoa(e.Status)
	}
	if e.Cause != nil {
		return "HTTP error: " + e.Cause.Error()
	}
	return "HTTP error"
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Config configures an HTTPSource.
type Config struct {
	BaseURL string
	// Timeout bounds one request. Zero means no timeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests. Zero means unlimited.
	RequestsPerSecond float64
	UserAgent         string
}

// HTTPSource issues GET <base>?limit=N&offset=M and expects a JSON array of
// objects.
type HTTPSource struct {
	base       *url.URL
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSource validates cfg and returns a source.
func NewHTTPSource(cfg Config) (*HTTPSource, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	s := &HTTPSource{
		base:       u,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s, nil
}

// URL returns the request URL for a window.
func (s *HTTPSource) URL(w Window) string {
	u := *s.base
	q := u.Query()
	q.Set("limit", strconv.Itoa(w.Limit))
	q.Set("offset", strconv.Itoa(w.Offset))
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, w Window) (record.Dataset, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Cause: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(w), nil)
	if err != nil {
		return nil, &FetchError{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	ds, err := record.Decode(body)
	if err != nil {
		return nil, &FetchError{Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	return ds, nil
}
