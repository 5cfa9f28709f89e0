// internal/web/views.go
package web

import (
	"time"

	"pulse/internal/domain"
)

// JSON shapes served by the agent. Field names follow the backend's snake_case.

type healthView struct {
	Status            string     `json:"status"`
	ReliabilityScore  float64    `json:"reliability_score"`
	CurrentLatencyMs  *float64   `json:"current_latency_ms"`
	BaselineLatencyMs *float64   `json:"baseline_latency_ms"`
	ErrorRate         float64    `json:"error_rate"`
	UptimePercentage  float64    `json:"uptime_percentage"`
	LastProbeAt       *time.Time `json:"last_probe_at"`
}

type dashboardEndpointView struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status string      `json:"status"`
	Health *healthView `json:"health"`
}

type incidentView struct {
	ID         string     `json:"id"`
	EndpointID string     `json:"endpoint_id"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	Title      string     `json:"title"`
	StartedAt  time.Time  `json:"started_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
	Duration   string     `json:"duration"`
}

type dashboardView struct {
	OverallHealth       int                     `json:"overall_health"`
	EndpointCount       int                     `json:"endpoint_count"`
	HealthyCount        int                     `json:"healthy_count"`
	DegradedCount       int                     `json:"degraded_count"`
	DownCount           int                     `json:"down_count"`
	ActiveIncidentCount int                     `json:"active_incident_count"`
	Endpoints           []dashboardEndpointView `json:"endpoints"`
	RecentIncidents     []incidentView          `json:"recent_incidents"`
	FetchedAt           time.Time               `json:"fetched_at"`
}

func newDashboardView(d domain.DashboardData) dashboardView {
	view := dashboardView{
		OverallHealth:       d.OverallHealth,
		EndpointCount:       d.EndpointCount,
		HealthyCount:        d.HealthyCount,
		DegradedCount:       d.DegradedCount,
		DownCount:           d.DownCount,
		ActiveIncidentCount: d.ActiveIncidentCount,
		Endpoints:           make([]dashboardEndpointView, 0, len(d.Endpoints)),
		RecentIncidents:     make([]incidentView, 0, len(d.RecentIncidents)),
		FetchedAt:           d.FetchedAt,
	}

	for _, ep := range d.Endpoints {
		ev := dashboardEndpointView{ID: ep.ID, Name: ep.Name, Status: string(ep.Status())}
		if h := ep.Health; h != nil {
			ev.Health = &healthView{
				Status:            string(h.Status),
				ReliabilityScore:  h.ReliabilityScore,
				CurrentLatencyMs:  h.CurrentLatencyMs,
				BaselineLatencyMs: h.BaselineLatencyMs,
				ErrorRate:         h.ErrorRate,
				UptimePercentage:  h.UptimePercentage,
				LastProbeAt:       h.LastProbeAt,
			}
		}
		view.Endpoints = append(view.Endpoints, ev)
	}

	for _, inc := range d.RecentIncidents {
		view.RecentIncidents = append(view.RecentIncidents, incidentView{
			ID:         inc.ID,
			EndpointID: inc.EndpointID,
			Type:       string(inc.Type),
			Severity:   string(inc.Severity),
			Status:     string(inc.Status),
			Title:      inc.Title,
			StartedAt:  inc.StartedAt,
			ResolvedAt: inc.ResolvedAt,
			Duration:   domain.FormatDuration(inc.Duration()),
		})
	}

	return view
}
