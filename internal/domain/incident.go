// internal/domain/incident.go
package domain

import (
	"sort"
	"strings"
	"time"
)

type IncidentType string

const (
	IncidentLatencySpike   IncidentType = "latencySpike"
	IncidentHighErrorRate  IncidentType = "highErrorRate"
	IncidentTimeout        IncidentType = "timeout"
	IncidentCompleteOutage IncidentType = "completeOutage"
)

// ParseIncidentType accepts camelCase or snake_case and falls back to latencySpike.
func ParseIncidentType(s string) (IncidentType, bool) {
	key := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	for _, t := range []IncidentType{IncidentLatencySpike, IncidentHighErrorRate, IncidentTimeout, IncidentCompleteOutage} {
		if strings.ToLower(string(t)) == key {
			return t, true
		}
	}
	return IncidentLatencySpike, false
}

func (t IncidentType) DisplayName() string {
	switch t {
	case IncidentHighErrorRate:
		return "High Error Rate"
	case IncidentTimeout:
		return "Timeout"
	case IncidentCompleteOutage:
		return "Complete Outage"
	default:
		return "Latency Spike"
	}
}

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// ParseSeverity falls back to minor.
func ParseSeverity(s string) (Severity, bool) {
	switch sv := Severity(strings.ToLower(s)); sv {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return sv, true
	}
	return SeverityMinor, false
}

// Priority orders severities: minor 1, major 2, critical 3.
func (s Severity) Priority() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	default:
		return 1
	}
}

// IncidentStatus is a state in the incident lifecycle. Transitions are
// validated by the backend; any state may move to any other non-initial state.
type IncidentStatus string

const (
	IncidentActive        IncidentStatus = "active"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

var AllIncidentStatuses = []IncidentStatus{
	IncidentActive, IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved,
}

// ParseIncidentStatus falls back to active.
func ParseIncidentStatus(s string) (IncidentStatus, bool) {
	st := IncidentStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllIncidentStatuses {
		if st == known {
			return st, true
		}
	}
	return IncidentActive, false
}

// IsActive is true for every state except resolved.
func (s IncidentStatus) IsActive() bool {
	return s != IncidentResolved
}

type Incident struct {
	ID              string
	EndpointID      string
	Type            IncidentType
	Severity        Severity
	Status          IncidentStatus
	StartedAt       time.Time
	ResolvedAt      *time.Time
	Title           string
	Description     *string
	AffectedRegions []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (i Incident) IsResolved() bool {
	return i.Status == IncidentResolved
}

// Duration is recomputed on every call; an unresolved incident keeps growing.
func (i Incident) Duration() time.Duration {
	return i.DurationAt(time.Now())
}

func (i Incident) DurationAt(now time.Time) time.Duration {
	end := now
	if i.ResolvedAt != nil {
		end = *i.ResolvedAt
	}
	return end.Sub(i.StartedAt)
}

type IncidentTimelineEntry struct {
	ID         string
	IncidentID string
	Status     IncidentStatus
	Message    string
	Timestamp  time.Time
}

// IncidentDetail is an incident together with its timeline, oldest entry first.
type IncidentDetail struct {
	Incident Incident
	Timeline []IncidentTimelineEntry
}

// SortTimeline orders entries by timestamp ascending, keeping the order of ties.
func SortTimeline(entries []IncidentTimelineEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Timestamp.Before(entries[b].Timestamp)
	})
}

type IncidentStats struct {
	Total    int
	Active   int
	Resolved int
	Critical int
	Major    int
	Minor    int
}

// SortIncidents orders active incidents first, then by severity, then newest first.
func SortIncidents(incidents []Incident) {
	sort.SliceStable(incidents, func(a, b int) bool {
		x, y := incidents[a], incidents[b]
		if x.Status.IsActive() != y.Status.IsActive() {
			return x.Status.IsActive()
		}
		if x.Severity.Priority() != y.Severity.Priority() {
			return x.Severity.Priority() > y.Severity.Priority()
		}
		return x.StartedAt.After(y.StartedAt)
	})
}
