// Package httpclient fetches careers pages with browser-like headers, retries and a body cap.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

// ErrUnexpectedStatus indicates a non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status code")

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultAccept    = "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8"
)

// RetryPolicy controls exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// Delay returns the wait before the attempt following the given one (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= mult
	}
	if p.MaxDelay > 0 && time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Options configure the transport.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	MaxBodyKB      int
	Retry          RetryPolicy
	// WarmUp requests the list page origin once per session to collect cookies.
	WarmUp bool
	// Base is cloned for every session; its Jar is replaced.
	Base *http.Client
}

// Transport creates one session per run so cookies never leak between runs.
type Transport struct {
	opts   Options
	logger *slog.Logger
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport applies defaults to opts.
func NewTransport(opts Options, logger *slog.Logger) *Transport {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "en-US,en;q=0.9"
	}
	if opts.MaxBodyKB <= 0 {
		opts.MaxBodyKB = 4096
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 1
	}
	return &Transport{opts: opts, logger: logger}
}

// NewSession returns a fetcher with a fresh cookie jar and the source's list URL as referer.
func (t *Transport) NewSession(src domain.Source) ports.PageFetcher {
	client := &http.Client{}
	if t.opts.Base != nil {
		copied := *t.opts.Base
		client = &copied
	}
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.Jar = jar
	}

	s := &Session{
		client:  client,
		opts:    t.opts,
		referer: src.ListURL,
		logger:  t.logger,
	}
	if t.opts.WarmUp {
		s.warmUpURL = originOf(src.ListURL)
	}
	return s
}

// Session is a cookie-carrying fetcher for a single run.
type Session struct {
	client    *http.Client
	opts      Options
	referer   string
	warmUpURL string
	warmUp    sync.Once
	logger    *slog.Logger
}

// Fetch GETs rawURL, retrying transient failures, and returns the capped body.
func (s *Session) Fetch(ctx context.Context, rawURL string) (*domain.Page, error) {
	if s.warmUpURL != "" {
		s.warmUp.Do(func() {
			if _, err := s.attempt(ctx, s.warmUpURL); err != nil {
				s.debug("warm-up failed", "url", s.warmUpURL, "error", err)
			}
		})
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.Retry.MaxAttempts; attempt++ {
		page, err := s.attempt(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !retryable(err) || attempt == s.opts.Retry.MaxAttempts {
			break
		}
		s.debug("retrying fetch", "url", rawURL, "attempt", attempt, "error", err)
		if err := sleep(ctx, s.opts.Retry.Delay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Session) attempt(ctx context.Context, rawURL string) (*domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", s.opts.AcceptLanguage)
	if s.referer != "" && s.referer != rawURL {
		req.Header.Set("Referer", s.referer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	limit := int64(s.opts.MaxBodyKB) * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}

	return &domain.Page{
		URL:       resp.Request.URL.String(),
		Status:    resp.StatusCode,
		Body:      body,
		FetchedAt: time.Now(),
	}, nil
}

// StatusError wraps ErrUnexpectedStatus with the response code.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v: %d", e.URL, ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway:
			return true
		}
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func (s *Session) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
