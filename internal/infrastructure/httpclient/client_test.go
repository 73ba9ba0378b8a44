package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobWatch/internal/domain"
)

func TestSessionFetchSetsHeadersAndCapsBody(t *testing.T) {
	t.Parallel()

	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write(make([]byte, 3*1024))
	}))
	defer server.Close()

	transport := NewTransport(Options{UserAgent: "JobWatch-test", MaxBodyKB: 1}, nil)
	session := transport.NewSession(domain.NewSource("acme", server.URL+"/jobs"))

	page, err := session.Fetch(context.Background(), server.URL+"/jobs/1")
	require.NoError(t, err)
	assert.Len(t, page.Body, 1024)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.False(t, page.FetchedAt.IsZero())
	assert.Equal(t, "JobWatch-test", gotUA)
	assert.Equal(t, server.URL+"/jobs", gotReferer)
}

func TestSessionRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	transport := NewTransport(Options{Retry: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 2}}, nil)
	page, err := transport.NewSession(domain.NewSource("acme", server.URL)).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(page.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSessionDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	transport := NewTransport(Options{Retry: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}}, nil)
	_, err := transport.NewSession(domain.NewSource("acme", server.URL)).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSessionHonoursContextTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	transport := NewTransport(Options{Retry: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}}, nil)
	_, err := transport.NewSession(domain.NewSource("acme", server.URL)).Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSessionKeepsCookiesWithinSession(t *testing.T) {
	t.Parallel()

	var sawCookie atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("sid"); err == nil && c.Value == "abc" {
			sawCookie.Store(true)
		}
	}))
	defer server.Close()

	transport := NewTransport(Options{WarmUp: true}, nil)
	src := domain.NewSource("acme", server.URL+"/jobs")

	_, err := transport.NewSession(src).Fetch(context.Background(), server.URL+"/jobs")
	require.NoError(t, err)
	assert.True(t, sawCookie.Load())
}

func TestRetryPolicyDelay(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 300*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Duration(0), RetryPolicy{}.Delay(2))
}
