// internal/domain/endpoint.go
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultProbeIntervalMinutes = 5
	MinProbeIntervalMinutes     = 1
	MaxProbeIntervalMinutes     = 60
	DefaultTimeoutSeconds       = 10
)

// DefaultExpectedStatusCodes is the accepted set for a freshly created endpoint.
var DefaultExpectedStatusCodes = []int{200, 201, 204}

// ErrInvalidURL is returned by Validate when the endpoint URL is not absolute.
var ErrInvalidURL = errors.New("invalid endpoint url")

type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
	MethodHead   HTTPMethod = "HEAD"
)

var AllHTTPMethods = []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead}

// ParseHTTPMethod is case-insensitive. Unknown methods yield GET and ok=false.
func ParseHTTPMethod(s string) (HTTPMethod, bool) {
	m := HTTPMethod(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllHTTPMethods {
		if m == known {
			return m, true
		}
	}
	return MethodGet, false
}

// Endpoint is a monitored target. ID is server-assigned and never changes.
type Endpoint struct {
	ID                   string
	UserID               string
	Name                 string
	URL                  string
	Method               HTTPMethod
	Headers              map[string]string
	Body                 *string
	ProbeIntervalMinutes int
	TimeoutSeconds       int
	ExpectedStatusCodes  []int
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewEndpoint returns an unsaved endpoint carrying the default probe settings.
func NewEndpoint(name, rawURL string, method HTTPMethod) Endpoint {
	codes := make([]int, len(DefaultExpectedStatusCodes))
	copy(codes, DefaultExpectedStatusCodes)
	return Endpoint{
		Name:                 name,
		URL:                  rawURL,
		Method:               method,
		ProbeIntervalMinutes: DefaultProbeIntervalMinutes,
		TimeoutSeconds:       DefaultTimeoutSeconds,
		ExpectedStatusCodes:  codes,
		IsActive:             true,
	}
}

// ValidationError reports a field rejected before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validate checks the fields a create or update must satisfy.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if err := ValidateURL(e.URL); err != nil {
		return err
	}
	if err := ValidateProbeInterval(e.ProbeIntervalMinutes); err != nil {
		return err
	}
	if e.TimeoutSeconds <= 0 {
		return &ValidationError{Field: "timeout_seconds", Reason: "must be positive"}
	}
	if len(e.ExpectedStatusCodes) == 0 {
		return &ValidationError{Field: "expected_status_codes", Reason: "must not be empty"}
	}
	for _, code := range e.ExpectedStatusCodes {
		if code < 100 || code > 599 {
			return &ValidationError{Field: "expected_status_codes", Reason: fmt.Sprintf("contains invalid code %d", code)}
		}
	}
	return nil
}

// ValidateURL accepts only absolute URLs with a scheme and a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	return nil
}

func ValidateProbeInterval(minutes int) error {
	if minutes < MinProbeIntervalMinutes || minutes > MaxProbeIntervalMinutes {
		return &ValidationError{
			Field:  "probe_interval_minutes",
			Reason: fmt.Sprintf("must be between %d and %d", MinProbeIntervalMinutes, MaxProbeIntervalMinutes),
		}
	}
	return nil
}

// Host returns the hostname of the endpoint URL, or the raw URL when it does not parse.
func (e Endpoint) Host() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		return e.URL
	}
	return u.Hostname()
}

// Path returns the URL path, "/" when empty.
func (e Endpoint) Path() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// Matches reports whether query appears in the name or URL, ignoring case.
func (e Endpoint) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.URL), q)
}

// EndpointPatch carries the optional fields of an update. Nil means unchanged.
type EndpointPatch struct {
	Name                 *string
	URL                  *string
	Method               *HTTPMethod
	Headers              map[string]string
	Body                 *string
	ProbeIntervalMinutes *int
	TimeoutSeconds       *int
	ExpectedStatusCodes  []int
	IsActive             *bool
}

func (p EndpointPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.URL != nil {
		if err := ValidateURL(*p.URL); err != nil {
			return err
		}
	}
	if p.ProbeIntervalMinutes != nil {
		if err := ValidateProbeInterval(*p.ProbeIntervalMinutes); err != nil {
			return err
		}
	}
	if p.TimeoutSeconds != nil && *p.TimeoutSeconds <= 0 {
		return &ValidationError{Field: "timeout_seconds", Reason: "must be positive"}
	}
	if p.ExpectedStatusCodes != nil && len(p.ExpectedStatusCodes) == 0 {
		return &ValidationError{Field: "expected_status_codes", Reason: "must not be empty"}
	}
	return nil
}

type EndpointStatus string

const (
	StatusHealthy  EndpointStatus = "healthy"
	StatusDegraded EndpointStatus = "degraded"
	StatusDown     EndpointStatus = "down"
	StatusUnknown  EndpointStatus = "unknown"
)

// ParseEndpointStatus falls back to unknown.
func ParseEndpointStatus(s string) (EndpointStatus, bool) {
	switch st := EndpointStatus(strings.ToLower(s)); st {
	case StatusHealthy, StatusDegraded, StatusDown, StatusUnknown:
		return st, true
	}
	return StatusUnknown, false
}

// HealthSummary is computed by the backend and only ever fetched.
type HealthSummary struct {
	EndpointID        string
	Status            EndpointStatus
	ReliabilityScore  float64
	CurrentLatencyMs  *float64
	BaselineLatencyMs *float64
	ErrorRate         float64
	LastProbeAt       *time.Time
	LastIncidentAt    *time.Time
	UptimePercentage  float64
}

// LatencyDelta is current minus baseline latency, nil when either is missing.
func (h HealthSummary) LatencyDelta() *float64 {
	if h.CurrentLatencyMs == nil || h.BaselineLatencyMs == nil {
		return nil
	}
	d := *h.CurrentLatencyMs - *h.BaselineLatencyMs
	return &d
}
