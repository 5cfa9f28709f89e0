// internal/wire/mapper.go
package wire

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"pulse/internal/domain"
)

// Fallback describes one field that was replaced by a default during decoding.
type Fallback struct {
	Entity string
	ID     string
	Field  string
	Raw    string
}

// Mapper converts DTOs into domain values. Optional and auxiliary fields
// degrade to safe defaults; every substitution is reported to OnFallback.
type Mapper struct {
	Now        func() time.Time
	OnFallback func(Fallback)
}

// NewMapper returns a mapper that logs each fallback as a warning.
func NewMapper() *Mapper {
	return &Mapper{
		Now: time.Now,
		OnFallback: func(f Fallback) {
			logrus.WithFields(logrus.Fields{
				"entity": f.Entity,
				"id":     f.ID,
				"field":  f.Field,
				"raw":    f.Raw,
			}).Warn("Decoded field with fallback value")
		},
	}
}

func (m *Mapper) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Mapper) report(used bool, entity, id, field, raw string) {
	if used && m.OnFallback != nil {
		m.OnFallback(Fallback{Entity: entity, ID: id, Field: field, Raw: raw})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (m *Mapper) timestamp(entity, id, field, raw string) time.Time {
	t, used := DecodeTime(raw, m.now)
	m.report(used, entity, id, field, raw)
	return t
}

func (m *Mapper) optionalTime(entity, id, field string, raw *string) *time.Time {
	t, used := DecodeOptionalTime(raw)
	m.report(used, entity, id, field, deref(raw))
	return t
}

func (m *Mapper) Endpoint(dto EndpointDTO) domain.Endpoint {
	const entity = "endpoint"

	method, ok := domain.ParseHTTPMethod(dto.Method)
	m.report(!ok, entity, dto.ID, "method", dto.Method)

	headers, used := DecodeHeaders(dto.Headers)
	m.report(used, entity, dto.ID, "headers", deref(dto.Headers))

	codes, used := DecodeStatusCodes(dto.ExpectedStatusCodes)
	m.report(used, entity, dto.ID, "expected_status_codes", dto.ExpectedStatusCodes)

	return domain.Endpoint{
		ID:                   dto.ID,
		UserID:               dto.UserID,
		Name:                 dto.Name,
		URL:                  dto.URL,
		Method:               method,
		Headers:              headers,
		Body:                 dto.Body,
		ProbeIntervalMinutes: dto.ProbeIntervalMinutes,
		TimeoutSeconds:       dto.TimeoutSeconds,
		ExpectedStatusCodes:  codes,
		IsActive:             dto.IsActive == 1,
		CreatedAt:            m.timestamp(entity, dto.ID, "created_at", dto.CreatedAt),
		UpdatedAt:            m.timestamp(entity, dto.ID, "updated_at", dto.UpdatedAt),
	}
}

func (m *Mapper) Endpoints(dtos []EndpointDTO) []domain.Endpoint {
	out := make([]domain.Endpoint, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, m.Endpoint(dto))
	}
	return out
}

func (m *Mapper) Health(dto HealthSummaryDTO) domain.HealthSummary {
	const entity = "health"

	status, ok := domain.ParseEndpointStatus(dto.Status)
	m.report(!ok, entity, dto.EndpointID, "status", dto.Status)

	return domain.HealthSummary{
		EndpointID:        dto.EndpointID,
		Status:            status,
		ReliabilityScore:  dto.ReliabilityScore,
		CurrentLatencyMs:  dto.CurrentLatencyMs,
		BaselineLatencyMs: dto.BaselineLatencyMs,
		ErrorRate:         dto.ErrorRate,
		LastProbeAt:       m.optionalTime(entity, dto.EndpointID, "last_probe_at", dto.LastProbeAt),
		LastIncidentAt:    m.optionalTime(entity, dto.EndpointID, "last_incident_at", dto.LastIncidentAt),
		UptimePercentage:  dto.UptimePercentage,
	}
}

// Incident enforces that ResolvedAt is set exactly when the status is resolved.
func (m *Mapper) Incident(dto IncidentDTO) domain.Incident {
	const entity = "incident"

	typ, ok := domain.ParseIncidentType(dto.Type)
	m.report(!ok, entity, dto.ID, "type", dto.Type)

	severity, ok := domain.ParseSeverity(dto.Severity)
	m.report(!ok, entity, dto.ID, "severity", dto.Severity)

	status, ok := domain.ParseIncidentStatus(dto.Status)
	m.report(!ok, entity, dto.ID, "status", dto.Status)

	regions, used := DecodeRegions(dto.AffectedRegions)
	m.report(used, entity, dto.ID, "affected_regions", deref(dto.AffectedRegions))

	inc := domain.Incident{
		ID:              dto.ID,
		EndpointID:      dto.EndpointID,
		Type:            typ,
		Severity:        severity,
		Status:          status,
		StartedAt:       m.timestamp(entity, dto.ID, "started_at", dto.StartedAt),
		ResolvedAt:      m.optionalTime(entity, dto.ID, "resolved_at", dto.ResolvedAt),
		Title:           dto.Title,
		Description:     dto.Description,
		AffectedRegions: regions,
		CreatedAt:       m.timestamp(entity, dto.ID, "created_at", dto.CreatedAt),
		UpdatedAt:       m.timestamp(entity, dto.ID, "updated_at", dto.UpdatedAt),
	}

	switch {
	case inc.Status == domain.IncidentResolved && inc.ResolvedAt == nil:
		resolved := inc.UpdatedAt
		inc.ResolvedAt = &resolved
		m.report(true, entity, dto.ID, "resolved_at", deref(dto.ResolvedAt))
	case inc.Status != domain.IncidentResolved && inc.ResolvedAt != nil:
		inc.ResolvedAt = nil
		m.report(true, entity, dto.ID, "resolved_at", deref(dto.ResolvedAt))
	}

	return inc
}

func (m *Mapper) Incidents(dtos []IncidentDTO) []domain.Incident {
	out := make([]domain.Incident, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, m.Incident(dto))
	}
	return out
}

func (m *Mapper) TimelineEntry(dto TimelineEntryDTO) domain.IncidentTimelineEntry {
	const entity = "timeline_entry"

	status, ok := domain.ParseIncidentStatus(dto.Status)
	m.report(!ok, entity, dto.ID, "status", dto.Status)

	return domain.IncidentTimelineEntry{
		ID:         dto.ID,
		IncidentID: dto.IncidentID,
		Status:     status,
		Message:    dto.Message,
		Timestamp:  m.timestamp(entity, dto.ID, "timestamp", dto.Timestamp),
	}
}

// IncidentDetail returns the incident with its timeline sorted oldest first.
func (m *Mapper) IncidentDetail(dto IncidentWithTimelineDTO) domain.IncidentDetail {
	timeline := make([]domain.IncidentTimelineEntry, 0, len(dto.Timeline))
	for _, entry := range dto.Timeline {
		timeline = append(timeline, m.TimelineEntry(entry))
	}
	domain.SortTimeline(timeline)

	return domain.IncidentDetail{
		Incident: m.Incident(dto.Incident),
		Timeline: timeline,
	}
}

func (m *Mapper) IncidentStats(dto IncidentStatsDTO) domain.IncidentStats {
	return domain.IncidentStats{
		Total:    dto.Total,
		Active:   dto.Active,
		Resolved: dto.Resolved,
		Critical: dto.Critical,
		Major:    dto.Major,
		Minor:    dto.Minor,
	}
}

func (m *Mapper) ProbeResult(dto ProbeResultDTO) domain.ProbeResult {
	const entity = "probe_result"

	status, ok := domain.ParseProbeStatus(dto.Status)
	m.report(!ok, entity, dto.ID, "status", dto.Status)

	return domain.ProbeResult{
		ID:           dto.ID,
		EndpointID:   dto.EndpointID,
		Timestamp:    m.timestamp(entity, dto.ID, "timestamp", dto.Timestamp),
		Status:       status,
		LatencyMs:    dto.LatencyMs,
		StatusCode:   dto.StatusCode,
		ErrorMessage: dto.ErrorMessage,
		Region:       dto.Region,
	}
}

func (m *Mapper) ProbeResults(dtos []ProbeResultDTO) []domain.ProbeResult {
	out := make([]domain.ProbeResult, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, m.ProbeResult(dto))
	}
	return out
}

// ProbeStats attaches the requested window, which the backend does not echo.
func (m *Mapper) ProbeStats(dto ProbeStatsDTO, endpointID string, start, end time.Time) domain.ProbeStatistics {
	stats := domain.ProbeStatistics{
		EndpointID:   endpointID,
		PeriodStart:  start,
		PeriodEnd:    end,
		TotalProbes:  dto.TotalProbes,
		SuccessCount: dto.SuccessCount,
		ErrorCount:   dto.ErrorCount,
		TimeoutCount: dto.TimeoutCount,
	}
	if dto.TotalProbes > 0 {
		stats.AverageLatencyMs = dto.AvgLatencyMs
		stats.P50LatencyMs = dto.P50LatencyMs
		stats.P95LatencyMs = dto.P95LatencyMs
		stats.P99LatencyMs = dto.P99LatencyMs
		stats.MinLatencyMs = dto.MinLatencyMs
		stats.MaxLatencyMs = dto.MaxLatencyMs
	}
	return stats
}

func (m *Mapper) User(dto UserDTO) domain.User {
	const entity = "user"
	return domain.User{
		ID:                    dto.ID,
		Email:                 dto.Email,
		SubscriptionStatus:    dto.SubscriptionStatus,
		SubscriptionExpiresAt: m.optionalTime(entity, dto.ID, "subscription_expires_at", dto.SubscriptionExpiresAt),
		CreatedAt:             m.timestamp(entity, dto.ID, "created_at", dto.CreatedAt),
		EndpointCount:         dto.EndpointCount,
	}
}

// Dashboard leaves Health nil when the backend sent none.
func (m *Mapper) Dashboard(dto DashboardDTO) domain.DashboardData {
	endpoints := make([]domain.DashboardEndpoint, 0, len(dto.Endpoints))
	for _, e := range dto.Endpoints {
		de := domain.DashboardEndpoint{ID: e.Endpoint.ID, Name: e.Endpoint.Name}
		if e.Health != nil {
			h := m.Health(*e.Health)
			de.Health = &h
		}
		endpoints = append(endpoints, de)
	}

	return domain.DashboardData{
		OverallHealth:       dto.OverallHealth,
		EndpointCount:       dto.EndpointCount,
		HealthyCount:        dto.HealthyCount,
		DegradedCount:       dto.DegradedCount,
		DownCount:           dto.DownCount,
		ActiveIncidentCount: dto.ActiveIncidentCount,
		Endpoints:           endpoints,
		RecentIncidents:     m.Incidents(dto.RecentIncidents),
		FetchedAt:           m.now(),
	}
}

// EncodeEndpoint is the inverse of Mapper.Endpoint for valid endpoints.
func EncodeEndpoint(e domain.Endpoint) EndpointDTO {
	dto := EndpointDTO{
		ID:                   e.ID,
		UserID:               e.UserID,
		Name:                 e.Name,
		URL:                  e.URL,
		Method:               string(e.Method),
		Body:                 e.Body,
		ProbeIntervalMinutes: e.ProbeIntervalMinutes,
		TimeoutSeconds:       e.TimeoutSeconds,
		ExpectedStatusCodes:  encodeJSONString(e.ExpectedStatusCodes),
		CreatedAt:            FormatTime(e.CreatedAt),
		UpdatedAt:            FormatTime(e.UpdatedAt),
	}
	if e.Headers != nil {
		h := encodeJSONString(e.Headers)
		dto.Headers = &h
	}
	if e.IsActive {
		dto.IsActive = 1
	}
	return dto
}

func encodeJSONString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func NewCreateEndpointRequest(e domain.Endpoint) CreateEndpointRequest {
	return CreateEndpointRequest{
		Name:                 e.Name,
		URL:                  e.URL,
		Method:               string(e.Method),
		ProbeIntervalMinutes: e.ProbeIntervalMinutes,
		TimeoutSeconds:       e.TimeoutSeconds,
		ExpectedStatusCodes:  e.ExpectedStatusCodes,
		Headers:              e.Headers,
		Body:                 e.Body,
	}
}

func NewUpdateEndpointRequest(p domain.EndpointPatch) UpdateEndpointRequest {
	req := UpdateEndpointRequest{
		Name:                 p.Name,
		URL:                  p.URL,
		ProbeIntervalMinutes: p.ProbeIntervalMinutes,
		TimeoutSeconds:       p.TimeoutSeconds,
		ExpectedStatusCodes:  p.ExpectedStatusCodes,
		IsActive:             p.IsActive,
		Headers:              p.Headers,
		Body:                 p.Body,
	}
	if p.Method != nil {
		method := string(*p.Method)
		req.Method = &method
	}
	return req
}
