package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/config"
	perrors "pulse/internal/errors"
	"pulse/internal/session"
)

func newTestClient(t *testing.T, baseURL string, sess *session.Session) (*Client, *[]time.Duration) {
	t.Helper()
	c := New(
		config.APIConfig{BaseURL: baseURL, Version: "v1", Timeout: 2 * time.Second, UserAgent: "pulse-test"},
		config.RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond},
		sess,
	)
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

func TestExecuteStampsHeaders(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	sess := session.New()
	c, _ := newTestClient(t, srv.URL+"/", sess)

	_, err := c.Execute(context.Background(), Descriptor{
		Op:     "list_incidents",
		Method: http.MethodGet,
		Path:   "/incidents",
		Query:  url.Values{"limit": {"50"}, "status": {"active"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/incidents", got.URL.Path)
	assert.Equal(t, "50", got.URL.Query().Get("limit"))
	assert.Equal(t, "active", got.URL.Query().Get("status"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "v1", got.Header.Get(HeaderAPIVersion))
	assert.Equal(t, "pulse-test", got.Header.Get("User-Agent"))
	assert.Empty(t, got.Header.Values(HeaderUserID))
	assert.Empty(t, body)

	sess.SetUserID("user-42")
	_, err = c.Execute(context.Background(), Descriptor{
		Op:     "update_status",
		Method: http.MethodPatch,
		Path:   "/incidents/i1/status",
		Body:   map[string]string{"status": "resolved", "message": "fixed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "user-42", got.Header.Get(HeaderUserID))
	assert.Equal(t, http.MethodPatch, got.Method)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "resolved", sent["status"])
}

func TestExecuteClassifiesStatus(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		kind    perrors.TransportKind
		message string
	}{
		{"unauthorized", 401, "", perrors.KindUnauthorized, "Authentication required"},
		{"forbidden", 403, "", perrors.KindForbidden, "Access denied"},
		{"not found", 404, `{"success":false,"error":"missing"}`, perrors.KindNotFound, "Resource not found"},
		{"rate limited", 429, "", perrors.KindRateLimited, "Too many requests. Please try again later."},
		{"server with message", 500, `{"success":false,"error":"database unavailable"}`, perrors.KindServerError, "database unavailable"},
		{"server without body", 502, "<html>bad gateway</html>", perrors.KindServerError, "Server error (502)"},
		{"other 4xx", 418, `{"message":"teapot"}`, perrors.KindServerError, "teapot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL, nil)
			_, err := c.Execute(context.Background(), Descriptor{Op: "test", Method: http.MethodGet, Path: "/x"})

			var te *perrors.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, tt.message, te.Error())
		})
	}
}

func TestExecuteWithRetryRecoversFromServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, nil)
	data, err := c.ExecuteWithRetry(context.Background(), Descriptor{Op: "dashboard", Method: http.MethodGet, Path: "/dashboard"}, 3)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"ok":true`)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestExecuteWithRetryStopsOnUnauthorized(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, nil)
	_, err := c.ExecuteWithRetry(context.Background(), Descriptor{Op: "me", Method: http.MethodGet, Path: "/users/me"}, 3)

	kind, ok := perrors.TransportKindOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.KindUnauthorized, kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, *delays)
}

func TestExecuteWithRetryExhausts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, nil)
	_, err := c.ExecuteWithRetry(context.Background(), Descriptor{Op: "dashboard", Method: http.MethodGet, Path: "/dashboard"}, 0)

	var te *perrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Len(t, *delays, 2)
}

func TestExecuteWithRetryCancelledDuringBackoff(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(
		config.APIConfig{BaseURL: srv.URL, Version: "v1", Timeout: time.Second},
		config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Minute},
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.ExecuteWithRetry(ctx, Descriptor{Op: "dashboard", Method: http.MethodGet, Path: "/dashboard"}, 3)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestExecuteNoConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, _ := newTestClient(t, addr, nil)
	_, err := c.Execute(context.Background(), Descriptor{Op: "list", Method: http.MethodGet, Path: "/endpoints"})

	kind, ok := perrors.TransportKindOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.KindNoConnection, kind)
	assert.True(t, perrors.IsRetryable(err))
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(
		config.APIConfig{BaseURL: srv.URL, Version: "v1", Timeout: 50 * time.Millisecond},
		config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
		nil,
	)
	_, err := c.Execute(context.Background(), Descriptor{Op: "slow", Method: http.MethodGet, Path: "/dashboard"})

	kind, ok := perrors.TransportKindOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.KindTimeout, kind)
}

func TestExecuteInvalidURL(t *testing.T) {
	c, _ := newTestClient(t, "not a url", nil)
	_, err := c.Execute(context.Background(), Descriptor{Op: "list", Method: http.MethodGet, Path: "/endpoints"})
	kind, _ := perrors.TransportKindOf(err)
	assert.Equal(t, perrors.KindInvalidURL, kind)

	c, _ = newTestClient(t, "http://localhost:8787", nil)
	_, err = c.Execute(context.Background(), Descriptor{Op: "list", Method: http.MethodGet, Path: "endpoints"})
	kind, _ = perrors.TransportKindOf(err)
	assert.Equal(t, perrors.KindInvalidURL, kind)
}

func TestBackoffJitter(t *testing.T) {
	c := New(config.APIConfig{BaseURL: "http://localhost"}, config.RetryConfig{BaseDelay: time.Second, Jitter: 0.5}, nil)
	c.jitter = func() float64 { return 1 }

	assert.Equal(t, 1500*time.Millisecond, c.backoff(0))
	assert.Equal(t, 3*time.Second, c.backoff(1))

	c.retry.Jitter = 0
	assert.Equal(t, 4*time.Second, c.backoff(2))
}

func TestBackoffCapsExponent(t *testing.T) {
	c := New(config.APIConfig{BaseURL: "http://localhost"}, config.RetryConfig{BaseDelay: time.Second}, nil)

	assert.Equal(t, 1024*time.Second, c.backoff(10))
	assert.Equal(t, 1024*time.Second, c.backoff(40))
	assert.Equal(t, 1024*time.Second, c.backoff(63))
}
