// internal/domain/probe.go
package domain

import (
	"strings"
	"time"
)

type ProbeStatus string

const (
	ProbeSuccess ProbeStatus = "success"
	ProbeError   ProbeStatus = "error"
	ProbeTimeout ProbeStatus = "timeout"
)

// ParseProbeStatus falls back to error so an unknown outcome never counts as success.
func ParseProbeStatus(s string) (ProbeStatus, bool) {
	switch st := ProbeStatus(strings.ToLower(s)); st {
	case ProbeSuccess, ProbeError, ProbeTimeout:
		return st, true
	}
	return ProbeError, false
}

type ProbeResult struct {
	ID           string
	EndpointID   string
	Timestamp    time.Time
	Status       ProbeStatus
	LatencyMs    *float64
	StatusCode   *int
	ErrorMessage *string
	Region       string
}

func (p ProbeResult) IsSuccess() bool {
	return p.Status == ProbeSuccess
}

// ProbeStatistics aggregates probes of one endpoint over [PeriodStart, PeriodEnd].
// Latency fields are nil when TotalProbes is zero.
type ProbeStatistics struct {
	EndpointID       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	TotalProbes      int
	SuccessCount     int
	ErrorCount       int
	TimeoutCount     int
	AverageLatencyMs *float64
	P50LatencyMs     *float64
	P95LatencyMs     *float64
	P99LatencyMs     *float64
	MinLatencyMs     *float64
	MaxLatencyMs     *float64
}

func (s ProbeStatistics) SuccessRate() float64 {
	if s.TotalProbes <= 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalProbes)
}

// ErrorRate counts timeouts as errors.
func (s ProbeStatistics) ErrorRate() float64 {
	if s.TotalProbes <= 0 {
		return 0
	}
	return float64(s.ErrorCount+s.TimeoutCount) / float64(s.TotalProbes)
}
