package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/domain"
	perrors "pulse/internal/errors"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testMapper() (*Mapper, *[]Fallback) {
	var fallbacks []Fallback
	m := &Mapper{
		Now:        func() time.Time { return fixedNow },
		OnFallback: func(f Fallback) { fallbacks = append(fallbacks, f) },
	}
	return m, &fallbacks
}

func strPtr(s string) *string { return &s }

func TestDecodeDataNoData(t *testing.T) {
	for _, body := range []string{
		`{"success":false,"data":null,"error":"nope"}`,
		`{"success":true,"data":null}`,
		`{"success":true}`,
	} {
		_, _, err := DecodeData[[]EndpointDTO]([]byte(body))
		assert.ErrorIs(t, err, ErrNoData, body)
	}
}

func TestDecodeDataKeepsBackendMessage(t *testing.T) {
	_, _, err := DecodeData[[]EndpointDTO]([]byte(`{"success":false,"data":null,"error":"quota exceeded"}`))
	assert.ErrorIs(t, err, ErrNoData)
	msg, ok := BackendMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "quota exceeded", msg)

	_, _, err = DecodeData[[]EndpointDTO]([]byte(`{"success":true,"data":null}`))
	_, ok = BackendMessage(err)
	assert.False(t, ok)
}

func TestDecodeDataMalformed(t *testing.T) {
	_, _, err := DecodeData[[]EndpointDTO]([]byte(`not json`))
	assert.True(t, perrors.IsDecoding(err))

	_, _, err = DecodeData[[]EndpointDTO]([]byte(`{"success":true,"data":{"id":1}}`))
	assert.True(t, perrors.IsDecoding(err))
	assert.False(t, errors.Is(err, ErrNoData))
}

func TestDecodeDataWithMeta(t *testing.T) {
	dtos, meta, err := DecodeData[[]IncidentDTO]([]byte(`{"success":true,"data":[{"id":"i1"}],"meta":{"total":7,"limit":50}}`))
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	require.NotNil(t, meta)
	assert.Equal(t, 7, *meta.Total)
	assert.Nil(t, meta.Page)
}

func TestDecodeStatusCodesIsDeterministic(t *testing.T) {
	for _, raw := range []string{"[200,", "", "null", "[]", `{"a":1}`} {
		first, used1 := DecodeStatusCodes(raw)
		second, used2 := DecodeStatusCodes(raw)
		assert.Equal(t, []int{200}, first, raw)
		assert.Equal(t, first, second)
		assert.True(t, used1)
		assert.True(t, used2)
	}

	codes, used := DecodeStatusCodes("[200,301]")
	assert.Equal(t, []int{200, 301}, codes)
	assert.False(t, used)
}

func TestDecodeHeaders(t *testing.T) {
	h, used := DecodeHeaders(nil)
	assert.Nil(t, h)
	assert.False(t, used)

	h, used = DecodeHeaders(strPtr(`{"Authorization":"Bearer x"}`))
	assert.Equal(t, map[string]string{"Authorization": "Bearer x"}, h)
	assert.False(t, used)

	h, used = DecodeHeaders(strPtr(`{broken`))
	assert.NotNil(t, h)
	assert.Empty(t, h)
	assert.True(t, used)
}

func TestDecodeRegions(t *testing.T) {
	r, used := DecodeRegions(strPtr(`["IAD","FRA"]`))
	assert.Equal(t, []string{"IAD", "FRA"}, r)
	assert.False(t, used)

	r, used = DecodeRegions(strPtr(`IAD,FRA`))
	assert.Empty(t, r)
	assert.True(t, used)

	r, _ = DecodeRegions(nil)
	assert.Empty(t, r)
}

func TestDecodeTime(t *testing.T) {
	now := func() time.Time { return fixedNow }

	ts, used := DecodeTime("2026-01-18T10:30:00.123Z", now)
	assert.False(t, used)
	assert.Equal(t, 123*time.Millisecond, time.Duration(ts.Nanosecond()))

	ts, used = DecodeTime("2026-01-18 10:30:00", now)
	assert.False(t, used)
	assert.Equal(t, 10, ts.Hour())

	ts, used = DecodeTime("yesterday", now)
	assert.True(t, used)
	assert.Equal(t, fixedNow, ts)

	opt, used := DecodeOptionalTime(strPtr("garbage"))
	assert.Nil(t, opt)
	assert.True(t, used)
}

func TestEndpointLenientDecode(t *testing.T) {
	m, fallbacks := testMapper()
	ep := m.Endpoint(EndpointDTO{
		ID:                  "e1",
		Name:                "API",
		URL:                 "https://api.example.com",
		Method:              "trace",
		Headers:             strPtr("nope"),
		ExpectedStatusCodes: "[oops",
		IsActive:            1,
		CreatedAt:           "2026-01-01T00:00:00Z",
		UpdatedAt:           "bad",
	})

	assert.Equal(t, domain.MethodGet, ep.Method)
	assert.Equal(t, map[string]string{}, ep.Headers)
	assert.Equal(t, []int{200}, ep.ExpectedStatusCodes)
	assert.True(t, ep.IsActive)
	assert.Equal(t, fixedNow, ep.UpdatedAt)

	fields := make([]string, 0, len(*fallbacks))
	for _, f := range *fallbacks {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"method", "headers", "expected_status_codes", "updated_at"}, fields)
}

func TestEndpointIsActiveInteger(t *testing.T) {
	m, _ := testMapper()
	assert.False(t, m.Endpoint(EndpointDTO{IsActive: 0, ExpectedStatusCodes: "[200]"}).IsActive)
	assert.False(t, m.Endpoint(EndpointDTO{IsActive: 2, ExpectedStatusCodes: "[200]"}).IsActive)
}

func TestEndpointRoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 18, 9, 0, 0, 500, time.UTC)
	updated := created.Add(time.Hour)
	body := `{"ping":true}`

	cases := map[string]domain.Endpoint{
		"minimal": {
			ID: "e1", UserID: "u1", Name: "API", URL: "https://api.example.com/health",
			Method: domain.MethodGet, ProbeIntervalMinutes: 5, TimeoutSeconds: 10,
			ExpectedStatusCodes: []int{200, 201, 204}, IsActive: true,
			CreatedAt: created, UpdatedAt: updated,
		},
		"full": {
			ID: "e2", UserID: "u1", Name: "Orders", URL: "https://orders.example.com/v1",
			Method: domain.MethodPost, Headers: map[string]string{"X-Key": "abc"}, Body: &body,
			ProbeIntervalMinutes: 60, TimeoutSeconds: 30, ExpectedStatusCodes: []int{202},
			IsActive: false, CreatedAt: created, UpdatedAt: updated,
		},
		"empty headers": {
			ID: "e3", Name: "Empty", URL: "https://example.com", Method: domain.MethodHead,
			Headers: map[string]string{}, ProbeIntervalMinutes: 1, TimeoutSeconds: 1,
			ExpectedStatusCodes: []int{200}, IsActive: true, CreatedAt: created, UpdatedAt: updated,
		},
	}

	for name, ep := range cases {
		t.Run(name, func(t *testing.T) {
			m, fallbacks := testMapper()

			raw, err := json.Marshal(EncodeEndpoint(ep))
			require.NoError(t, err)
			var dto EndpointDTO
			require.NoError(t, json.Unmarshal(raw, &dto))

			assert.Equal(t, ep, m.Endpoint(dto))
			assert.Empty(t, *fallbacks)
		})
	}
}

func TestIncidentResolvedInvariant(t *testing.T) {
	m, fallbacks := testMapper()

	resolved := m.Incident(IncidentDTO{
		ID: "i1", Type: "timeout", Severity: "critical", Status: "resolved",
		StartedAt: "2026-01-01T00:00:00Z", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T02:00:00Z",
	})
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, resolved.UpdatedAt, *resolved.ResolvedAt)

	active := m.Incident(IncidentDTO{
		ID: "i2", Type: "timeout", Severity: "major", Status: "monitoring",
		StartedAt: "2026-01-01T00:00:00Z", ResolvedAt: strPtr("2026-01-01T01:00:00Z"),
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T01:00:00Z",
	})
	assert.Nil(t, active.ResolvedAt)
	assert.Len(t, *fallbacks, 2)

	for _, inc := range []domain.Incident{resolved, active} {
		assert.Equal(t, inc.Status == domain.IncidentResolved, inc.ResolvedAt != nil)
	}
}

func TestIncidentEnumFallbacks(t *testing.T) {
	m, _ := testMapper()
	inc := m.Incident(IncidentDTO{
		ID: "i1", Type: "meteor", Severity: "apocalyptic", Status: "sleeping",
		AffectedRegions: strPtr("not-json"),
		StartedAt:       "2026-01-01T00:00:00Z", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	})
	assert.Equal(t, domain.IncidentLatencySpike, inc.Type)
	assert.Equal(t, domain.SeverityMinor, inc.Severity)
	assert.Equal(t, domain.IncidentActive, inc.Status)
	assert.Empty(t, inc.AffectedRegions)
}

func TestIncidentDetailSortsTimeline(t *testing.T) {
	m, _ := testMapper()
	detail := m.IncidentDetail(IncidentWithTimelineDTO{
		Incident: IncidentDTO{ID: "i1", Status: "investigating", StartedAt: "2026-01-01T00:00:00Z"},
		Timeline: []TimelineEntryDTO{
			{ID: "t2", Status: "investigating", Timestamp: "2026-01-01T00:10:00Z"},
			{ID: "t1", Status: "active", Timestamp: "2026-01-01T00:00:00Z"},
		},
	})
	require.Len(t, detail.Timeline, 2)
	assert.Equal(t, "t1", detail.Timeline[0].ID)
	assert.Equal(t, domain.IncidentInvestigating, detail.Timeline[1].Status)
}

func TestDashboardHealthAbsent(t *testing.T) {
	body := []byte(`{"success":true,"data":{"overall_health":98,"endpoint_count":5,"healthy_count":4,"degraded_count":1,"down_count":0,"active_incident_count":0,"endpoints":[{"endpoint":{"id":"e1","name":"API"},"health":null}],"recent_incidents":[]}}`)

	dto, _, err := DecodeData[DashboardDTO](body)
	require.NoError(t, err)

	m, _ := testMapper()
	dash := m.Dashboard(dto)
	assert.Equal(t, 98, dash.OverallHealth)
	require.Len(t, dash.Endpoints, 1)
	assert.Nil(t, dash.Endpoints[0].Health)
	assert.Equal(t, domain.StatusUnknown, dash.Endpoints[0].Status())
	assert.Empty(t, dash.RecentIncidents)
}

func TestProbeStatsWindow(t *testing.T) {
	m, _ := testMapper()
	avg := 120.0
	start := fixedNow.Add(-24 * time.Hour)

	empty := m.ProbeStats(ProbeStatsDTO{AvgLatencyMs: &avg}, "e1", start, fixedNow)
	assert.Nil(t, empty.AverageLatencyMs)
	assert.Equal(t, 0.0, empty.SuccessRate())

	stats := m.ProbeStats(ProbeStatsDTO{TotalProbes: 4, SuccessCount: 3, TimeoutCount: 1, AvgLatencyMs: &avg}, "e1", start, fixedNow)
	assert.Equal(t, "e1", stats.EndpointID)
	assert.Equal(t, start, stats.PeriodStart)
	assert.Equal(t, 120.0, *stats.AverageLatencyMs)
	assert.Equal(t, 0.25, stats.ErrorRate())
}

func TestUpdateRequestOmitsUnset(t *testing.T) {
	name := "Renamed"
	raw, err := json.Marshal(NewUpdateEndpointRequest(domain.EndpointPatch{Name: &name}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Renamed"}`, string(raw))

	active := false
	method := domain.MethodPut
	raw, err = json.Marshal(NewUpdateEndpointRequest(domain.EndpointPatch{IsActive: &active, Method: &method}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_active":false,"method":"PUT"}`, string(raw))
}
