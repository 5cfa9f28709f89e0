// internal/wire/dto.go
package wire

// Response bodies, snake_case as the backend sends them. Sub-JSON columns
// (headers, expected status codes, affected regions) arrive as strings.

type EndpointDTO struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"user_id"`
	Name                 string  `json:"name"`
	URL                  string  `json:"url"`
	Method               string  `json:"method"`
	Headers              *string `json:"headers"`
	Body                 *string `json:"body"`
	ProbeIntervalMinutes int     `json:"probe_interval_minutes"`
	TimeoutSeconds       int     `json:"timeout_seconds"`
	ExpectedStatusCodes  string  `json:"expected_status_codes"`
	IsActive             int     `json:"is_active"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

type HealthSummaryDTO struct {
	EndpointID        string   `json:"endpoint_id"`
	Status            string   `json:"status"`
	ReliabilityScore  float64  `json:"reliability_score"`
	CurrentLatencyMs  *float64 `json:"current_latency_ms"`
	BaselineLatencyMs *float64 `json:"baseline_latency_ms"`
	ErrorRate         float64  `json:"error_rate"`
	LastProbeAt       *string  `json:"last_probe_at"`
	LastIncidentAt    *string  `json:"last_incident_at"`
	UptimePercentage  float64  `json:"uptime_percentage"`
}

type IncidentDTO struct {
	ID              string  `json:"id"`
	EndpointID      string  `json:"endpoint_id"`
	Type            string  `json:"type"`
	Severity        string  `json:"severity"`
	Status          string  `json:"status"`
	StartedAt       string  `json:"started_at"`
	ResolvedAt      *string `json:"resolved_at"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	AffectedRegions *string `json:"affected_regions"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type TimelineEntryDTO struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

type IncidentWithTimelineDTO struct {
	Incident IncidentDTO        `json:"incident"`
	Timeline []TimelineEntryDTO `json:"timeline"`
}

type ProbeResultDTO struct {
	ID           string   `json:"id"`
	EndpointID   string   `json:"endpoint_id"`
	Timestamp    string   `json:"timestamp"`
	Status       string   `json:"status"`
	LatencyMs    *float64 `json:"latency_ms"`
	StatusCode   *int     `json:"status_code"`
	ErrorMessage *string  `json:"error_message"`
	Region       string   `json:"region"`
}

type ProbeStatsDTO struct {
	TotalProbes  int      `json:"total_probes"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	TimeoutCount int      `json:"timeout_count"`
	AvgLatencyMs *float64 `json:"avg_latency_ms"`
	P50LatencyMs *float64 `json:"p50_latency_ms"`
	P95LatencyMs *float64 `json:"p95_latency_ms"`
	P99LatencyMs *float64 `json:"p99_latency_ms"`
	MinLatencyMs *float64 `json:"min_latency_ms"`
	MaxLatencyMs *float64 `json:"max_latency_ms"`
}

type IncidentStatsDTO struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Resolved int `json:"resolved"`
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
}

type UserDTO struct {
	ID                    string  `json:"id"`
	Email                 string  `json:"email"`
	SubscriptionStatus    string  `json:"subscription_status"`
	SubscriptionExpiresAt *string `json:"subscription_expires_at"`
	CreatedAt             string  `json:"created_at"`
	EndpointCount         *int    `json:"endpoint_count"`
}

type EndpointBasicDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EndpointWithHealthDTO struct {
	Endpoint EndpointBasicDTO  `json:"endpoint"`
	Health   *HealthSummaryDTO `json:"health"`
}

type DashboardDTO struct {
	OverallHealth       int                     `json:"overall_health"`
	EndpointCount       int                     `json:"endpoint_count"`
	HealthyCount        int                     `json:"healthy_count"`
	DegradedCount       int                     `json:"degraded_count"`
	DownCount           int                     `json:"down_count"`
	ActiveIncidentCount int                     `json:"active_incident_count"`
	Endpoints           []EndpointWithHealthDTO `json:"endpoints"`
	RecentIncidents     []IncidentDTO           `json:"recent_incidents"`
}

type DeletedDTO struct {
	Deleted *bool `json:"deleted"`
}

// Request bodies.

type CreateEndpointRequest struct {
	Name                 string            `json:"name"`
	URL                  string            `json:"url"`
	Method               string            `json:"method"`
	ProbeIntervalMinutes int               `json:"probe_interval_minutes"`
	TimeoutSeconds       int               `json:"timeout_seconds"`
	ExpectedStatusCodes  []int             `json:"expected_status_codes"`
	Headers              map[string]string `json:"headers,omitempty"`
	Body                 *string           `json:"body,omitempty"`
}

type UpdateEndpointRequest struct {
	Name                 *string           `json:"name,omitempty"`
	URL                  *string           `json:"url,omitempty"`
	Method               *string           `json:"method,omitempty"`
	ProbeIntervalMinutes *int              `json:"probe_interval_minutes,omitempty"`
	TimeoutSeconds       *int              `json:"timeout_seconds,omitempty"`
	ExpectedStatusCodes  []int             `json:"expected_status_codes,omitempty"`
	IsActive             *bool             `json:"is_active,omitempty"`
	Headers              map[string]string `json:"headers,omitempty"`
	Body                 *string           `json:"body,omitempty"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type DeviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}
