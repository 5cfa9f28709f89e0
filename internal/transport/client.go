// internal/transport/client.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pulse/internal/config"
	perrors "pulse/internal/errors"
	"pulse/internal/session"
)

const (
	HeaderAPIVersion = "X-API-Version"
	HeaderUserID     = "X-User-ID"
)

// maxBackoffShift caps the exponent so long retry runs wait base*2^10 at most.
const maxBackoffShift = 10

// Descriptor is one backend operation: path relative to the versioned base,
// method, optional JSON body and query.
type Descriptor struct {
	Op     string
	Method string
	Path   string
	Body   any
	Query  url.Values
}

// Observer receives per-attempt request outcomes.
type Observer interface {
	ObserveRequest(op, outcome string, elapsed time.Duration)
	ObserveRetry(op, kind string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}
func (nopObserver) ObserveRetry(string, string)                  {}

// Client executes descriptors against the backend. It keeps no state between
// calls apart from reading the shared session.
type Client struct {
	baseURL    string
	version    string
	userAgent  string
	httpClient *http.Client
	session    *session.Session
	retry      config.RetryConfig
	observer   Observer
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() float64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func New(api config.APIConfig, retry config.RetryConfig, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.New()
	}
	c := &Client{
		baseURL:   strings.TrimRight(api.BaseURL, "/"),
		version:   strings.Trim(api.Version, "/"),
		userAgent: api.UserAgent,
		httpClient: &http.Client{
			Timeout: api.Timeout,
		},
		session:  sess,
		retry:    retry,
		observer: nopObserver{},
		sleep:    sleepContext,
		jitter:   rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session whose id is stamped on requests.
func (c *Client) Session() *session.Session {
	return c.session
}

// Execute performs a single attempt and classifies any failure.
func (c *Client) Execute(ctx context.Context, d Descriptor) ([]byte, error) {
	start := time.Now()
	data, err := c.do(ctx, d)
	c.observer.ObserveRequest(d.Op, outcomeLabel(err), time.Since(start))

	logger := logrus.WithFields(logrus.Fields{
		"op":      d.Op,
		"method":  d.Method,
		"path":    d.Path,
		"elapsed": time.Since(start),
	})
	if err != nil {
		logger.WithError(err).Debug("Request failed")
	} else {
		logger.Debug("Request completed")
	}
	return data, err
}

// ExecuteWithRetry retries retryable failures up to maxAttempts attempts,
// sleeping base*2^k after failed attempt k. maxAttempts <= 0 uses the
// configured default. Cancellation during a sleep returns ctx.Err().
func (c *Client) ExecuteWithRetry(ctx context.Context, d Descriptor, maxAttempts int) ([]byte, error) {
	if maxAttempts <= 0 {
		maxAttempts = c.retry.MaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, err := c.Execute(ctx, d)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !perrors.IsRetryable(err) || attempt == maxAttempts-1 {
			return nil, err
		}

		delay := c.backoff(attempt)
		kind, _ := perrors.TransportKindOf(err)
		c.observer.ObserveRetry(d.Op, kind.String())
		logrus.WithFields(logrus.Fields{
			"op":      d.Op,
			"attempt": attempt + 1,
			"of":      maxAttempts,
			"delay":   delay,
		}).WithError(err).Warn("Request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	shift := attempt
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	delay := c.retry.BaseDelay * time.Duration(1<<uint(shift))
	if c.retry.Jitter > 0 {
		delay += time.Duration(c.jitter() * c.retry.Jitter * float64(delay))
	}
	return delay
}

func (c *Client) do(ctx context.Context, d Descriptor) ([]byte, error) {
	req, err := c.newRequest(ctx, d)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, d Descriptor) (*http.Request, error) {
	if !strings.HasPrefix(d.Path, "/") {
		return nil, perrors.InvalidURL(fmt.Errorf("path %q is not relative to the API root", d.Path))
	}

	u, err := url.Parse(c.baseURL + "/" + c.version + d.Path)
	if err != nil {
		return nil, perrors.InvalidURL(err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, perrors.InvalidURL(fmt.Errorf("base url %q is not absolute", c.baseURL))
	}
	if len(d.Query) > 0 {
		u.RawQuery = d.Query.Encode()
	}

	var body io.Reader
	if d.Body != nil {
		data, err := json.Marshal(d.Body)
		if err != nil {
			return nil, perrors.NewTransport(perrors.KindEncodingFailed, err)
		}
		body = bytes.NewReader(data)
	}

	method := d.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, perrors.InvalidURL(err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIVersion, c.version)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if id, ok := c.session.UserID(); ok {
		req.Header.Set(HeaderUserID, id)
	}

	return req, nil
}

// classify maps a transport-level failure onto the error taxonomy. Caller
// cancellation is returned unchanged.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return perrors.NewTransport(perrors.KindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return perrors.NewTransport(perrors.KindTimeout, err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return perrors.NewTransport(perrors.KindNoConnection, err)
	}

	return perrors.Unknown(err)
}

func checkStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return &perrors.TransportError{Kind: perrors.KindUnauthorized, StatusCode: code}
	case code == http.StatusForbidden:
		return &perrors.TransportError{Kind: perrors.KindForbidden, StatusCode: code}
	case code == http.StatusNotFound:
		return &perrors.TransportError{Kind: perrors.KindNotFound, StatusCode: code}
	case code == http.StatusTooManyRequests:
		return &perrors.TransportError{Kind: perrors.KindRateLimited, StatusCode: code}
	default:
		return perrors.ServerError(code, errorMessage(body))
	}
}

// errorMessage reads {"error": "..."} or {"message": "..."} when the body has one.
func errorMessage(body []byte) string {
	var payload struct {
		Error   *string `json:"error"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != nil && *payload.Error != "" {
		return *payload.Error
	}
	if payload.Message != nil {
		return *payload.Message
	}
	return ""
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind, ok := perrors.TransportKindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "unknown"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
