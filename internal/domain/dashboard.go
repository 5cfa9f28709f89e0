package domain

import (
	"strings"
	"time"
)

type DashboardData struct {
	OverallHealth       int
	EndpointCount       int
	HealthyCount        int
	DegradedCount       int
	DownCount           int
	ActiveIncidentCount int
	Endpoints           []DashboardEndpoint
	RecentIncidents     []Incident
	FetchedAt           time.Time
}

type DashboardEndpoint struct {
	ID     string
	Name   string
	Health *HealthSummary
}

// Status is unknown when the backend sent no health summary.
func (d DashboardEndpoint) Status() EndpointStatus {
	if d.Health == nil {
		return StatusUnknown
	}
	return d.Health.Status
}

func (d DashboardEndpoint) LatencyMs() *float64 {
	if d.Health == nil {
		return nil
	}
	return d.Health.CurrentLatencyMs
}

type User struct {
	ID                    string
	Email                 string
	SubscriptionStatus    string
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
	EndpointCount         *int
}

// IsGuest reports whether the id was minted locally by a guest sign-in.
func (u User) IsGuest() bool {
	return strings.HasPrefix(u.ID, GuestIDPrefix)
}

const GuestIDPrefix = "guest-"

type NotificationType string

const (
	NotificationIncident    NotificationType = "incident"
	NotificationRecovery    NotificationType = "recovery"
	NotificationDegradation NotificationType = "degradation"
	NotificationSystem      NotificationType = "system"
)

// ParseNotificationType falls back to system.
func ParseNotificationType(s string) (NotificationType, bool) {
	switch t := NotificationType(strings.ToLower(s)); t {
	case NotificationIncident, NotificationRecovery, NotificationDegradation, NotificationSystem:
		return t, true
	}
	return NotificationSystem, false
}

// AppNotification is owned by the client and never sent to the backend.
type AppNotification struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	Timestamp  time.Time        `json:"timestamp"`
	Type       NotificationType `json:"type"`
	EndpointID *string          `json:"endpoint_id,omitempty"`
	IsRead     bool             `json:"is_read"`
}
