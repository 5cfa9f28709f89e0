package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/config"
	"pulse/internal/domain"
	perrors "pulse/internal/errors"
	"pulse/internal/session"
	"pulse/internal/transport"
	"pulse/internal/wire"
)

// fakeBackend serves a small in-memory slice of the API.
type fakeBackend struct {
	mu        sync.Mutex
	incident  wire.IncidentDTO
	timeline  []wire.TimelineEntryDTO
	hits      map[string]*int32
	failFirst map[string]int
	created   []wire.CreateEndpointRequest
	userIDs   []string
}

func envelope(data any) gin.H {
	return gin.H{"success": true, "data": data, "error": nil, "meta": nil}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		incident: wire.IncidentDTO{
			ID: "i1", EndpointID: "e1", Type: "highErrorRate", Severity: "major", Status: "active",
			StartedAt: "2026-01-18T10:00:00Z", Title: "Errors", CreatedAt: "2026-01-18T10:00:00Z", UpdatedAt: "2026-01-18T10:00:00Z",
		},
		timeline: []wire.TimelineEntryDTO{
			{ID: "t1", IncidentID: "i1", Status: "active", Message: "Detected", Timestamp: "2026-01-18T10:00:00Z"},
		},
		hits:      map[string]*int32{},
		failFirst: map[string]int{},
	}
}

func (f *fakeBackend) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.hits[route]; ok {
		return int(atomic.LoadInt32(p))
	}
	return 0
}

// track counts hits per route and fails the first n of them with a 503.
func (f *fakeBackend) track(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()
	f.mu.Lock()
	p, ok := f.hits[route]
	if !ok {
		p = new(int32)
		f.hits[route] = p
	}
	n := atomic.AddInt32(p, 1)
	remaining := f.failFirst[route]
	f.userIDs = append(f.userIDs, c.GetHeader(transport.HeaderUserID))
	f.mu.Unlock()

	if int(n) <= remaining {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "warming up"})
		return
	}
	c.Next()
}

func (f *fakeBackend) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(f.track)

	v1.GET("/endpoints", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
	})
	v1.GET("/endpoints/:id", func(c *gin.Context) {
		if c.Param("id") != "e1" {
			c.JSON(http.StatusOK, gin.H{"success": false, "data": nil, "error": "missing"})
			return
		}
		c.JSON(http.StatusOK, envelope(wire.EndpointDTO{
			ID: "e1", Name: "API", URL: "https://api.example.com", Method: "GET",
			ProbeIntervalMinutes: 5, TimeoutSeconds: 10, ExpectedStatusCodes: "[200]", IsActive: 1,
			CreatedAt: "2026-01-18T10:00:00Z", UpdatedAt: "2026-01-18T10:00:00Z",
		}))
	})
	v1.GET("/endpoints/:id/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
	})
	v1.POST("/endpoints", func(c *gin.Context) {
		var req wire.CreateEndpointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.mu.Lock()
		f.created = append(f.created, req)
		f.mu.Unlock()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database locked"})
	})
	v1.DELETE("/endpoints/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, envelope(gin.H{"deleted": true}))
	})

	v1.GET("/incidents", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c.Query("status") == "resolved" && f.incident.Status != "resolved" {
			c.JSON(http.StatusOK, envelope([]wire.IncidentDTO{}))
			return
		}
		c.JSON(http.StatusOK, envelope([]wire.IncidentDTO{f.incident}))
	})
	v1.GET("/incidents/:id", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c.Param("id") != f.incident.ID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
			return
		}
		timeline := make([]wire.TimelineEntryDTO, len(f.timeline))
		copy(timeline, f.timeline)
		// Newest first, to check the client sorts.
		for i, j := 0, len(timeline)-1; i < j; i, j = i+1, j-1 {
			timeline[i], timeline[j] = timeline[j], timeline[i]
		}
		c.JSON(http.StatusOK, envelope(wire.IncidentWithTimelineDTO{Incident: f.incident, Timeline: timeline}))
	})
	v1.PATCH("/incidents/:id/status", func(c *gin.Context) {
		var req wire.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		ts := "2026-01-18T11:00:00Z"
		f.incident.Status = req.Status
		f.incident.UpdatedAt = ts
		if req.Status == "resolved" {
			f.incident.ResolvedAt = &ts
		}
		f.timeline = append(f.timeline, wire.TimelineEntryDTO{
			ID: "t2", IncidentID: f.incident.ID, Status: req.Status, Message: req.Message, Timestamp: ts,
		})
		c.JSON(http.StatusOK, envelope(gin.H{"updated": true}))
	})
	v1.GET("/incidents/stats/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, envelope(wire.IncidentStatsDTO{Total: 3, Active: 1, Resolved: 2, Critical: 1}))
	})

	v1.GET("/probes/history/:id", func(c *gin.Context) {
		if c.Query("hours") != "24" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unexpected window"})
			return
		}
		latency := 87.5
		c.JSON(http.StatusOK, envelope([]wire.ProbeResultDTO{
			{ID: "p1", EndpointID: c.Param("id"), Timestamp: "2026-01-18T10:00:00Z", Status: "success", LatencyMs: &latency, Region: "IAD"},
			{ID: "p2", EndpointID: c.Param("id"), Timestamp: "2026-01-18T10:05:00Z", Status: "timeout", Region: "FRA"},
		}))
	})
	v1.GET("/probes/stats/:id", func(c *gin.Context) {
		if c.Param("id") == "paused" {
			c.JSON(http.StatusOK, gin.H{"success": false, "data": nil, "error": "Endpoint is paused"})
			return
		}
		c.JSON(http.StatusOK, envelope(wire.ProbeStatsDTO{TotalProbes: 0}))
	})

	v1.GET("/dashboard", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(`{"success":true,"data":{"overall_health":98,"endpoint_count":5,"healthy_count":4,"degraded_count":1,"down_count":0,"active_incident_count":0,"endpoints":[{"endpoint":{"id":"e1","name":"API"},"health":null}],"recent_incidents":[]}}`))
	})

	v1.GET("/users/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, envelope(wire.UserDTO{ID: c.GetHeader(transport.HeaderUserID), Email: "ops@example.com", SubscriptionStatus: "free", CreatedAt: "2026-01-01T00:00:00Z"}))
	})
	v1.POST("/users/device-token", func(c *gin.Context) {
		c.JSON(http.StatusOK, envelope(gin.H{"registered": true}))
	})

	return r
}

func setup(t *testing.T, f *fakeBackend) (*Repositories, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	sess := session.New()
	sess.SetUserID("user-1")
	client := transport.New(
		config.APIConfig{BaseURL: srv.URL, Version: "v1", Timeout: 5 * time.Second},
		config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		sess,
	)
	return New(client, &wire.Mapper{Now: time.Now}), sess
}

func TestEndpointListMissingDataIsEmpty(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	endpoints, err := repos.Endpoints.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, endpoints)
	assert.Empty(t, endpoints)
}

func TestEndpointGet(t *testing.T) {
	f := newFakeBackend()
	repos, _ := setup(t, f)

	ep, err := repos.Endpoints.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "API", ep.Name)
	assert.Nil(t, ep.Headers)

	_, err = repos.Endpoints.Get(context.Background(), "nope")
	assert.True(t, perrors.IsNotFound(err))
}

func TestEndpointHealthMissingDataIsDecoding(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	_, err := repos.Endpoints.Health(context.Background(), "e1")
	assert.True(t, perrors.IsDecoding(err))
}

func TestEndpointCreateIsNotRetried(t *testing.T) {
	f := newFakeBackend()
	repos, _ := setup(t, f)

	_, err := repos.Endpoints.Create(context.Background(), domain.NewEndpoint("API", "https://api.example.com", domain.MethodGet))
	kind, ok := perrors.TransportKindOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.KindServerError, kind)
	assert.Equal(t, "database locked", err.Error())
	assert.Equal(t, 1, f.count("POST /v1/endpoints"))
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.created, 1)
	assert.Equal(t, []int{200, 201, 204}, f.created[0].ExpectedStatusCodes)
}

func TestEndpointCreateRejectsBadURLLocally(t *testing.T) {
	f := newFakeBackend()
	repos, _ := setup(t, f)

	_, err := repos.Endpoints.Create(context.Background(), domain.NewEndpoint("API", "not a url", domain.MethodGet))
	kind, ok := perrors.TransportKindOf(err)
	require.True(t, ok)
	assert.Equal(t, perrors.KindInvalidURL, kind)
	assert.Equal(t, 0, f.count("POST /v1/endpoints"))

	ep := domain.NewEndpoint("API", "https://api.example.com", domain.MethodGet)
	ep.ProbeIntervalMinutes = 61
	_, err = repos.Endpoints.Create(context.Background(), ep)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEndpointDeleteRetries(t *testing.T) {
	f := newFakeBackend()
	f.failFirst["DELETE /v1/endpoints/:id"] = 2
	repos, _ := setup(t, f)

	require.NoError(t, repos.Endpoints.Delete(context.Background(), "e1"))
	assert.Equal(t, 3, f.count("DELETE /v1/endpoints/:id"))
}

func TestIncidentStatusUpdateThenGet(t *testing.T) {
	f := newFakeBackend()
	repos, _ := setup(t, f)
	ctx := context.Background()

	require.NoError(t, repos.Incidents.UpdateStatus(ctx, "i1", domain.IncidentResolved, "Fixed"))
	assert.Equal(t, 1, f.count("PATCH /v1/incidents/:id/status"))

	detail, err := repos.Incidents.Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentResolved, detail.Incident.Status)
	require.NotNil(t, detail.Incident.ResolvedAt)

	require.Len(t, detail.Timeline, 2)
	last := detail.Timeline[len(detail.Timeline)-1]
	assert.Equal(t, domain.IncidentResolved, last.Status)
	assert.Equal(t, "Fixed", last.Message)
	assert.True(t, detail.Timeline[0].Timestamp.Before(last.Timestamp))
}

func TestIncidentGetNotFound(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	_, err := repos.Incidents.Get(context.Background(), "missing")
	assert.True(t, perrors.IsNotFound(err))
}

func TestIncidentListFilter(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	ctx := context.Background()

	all, err := repos.Incidents.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.IncidentHighErrorRate, all[0].Type)

	resolved := domain.IncidentResolved
	none, err := repos.Incidents.List(ctx, &resolved)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIncidentStats(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	stats, err := repos.Incidents.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStats{Total: 3, Active: 1, Resolved: 2, Critical: 1}, stats)
}

func TestProbes(t *testing.T) {
	repos, _ := setup(t, newFakeBackend())
	ctx := context.Background()

	history, err := repos.Probes.History(ctx, "e1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsSuccess())
	assert.Nil(t, history[1].LatencyMs)

	stats, err := repos.Probes.Stats(ctx, "e1", 6)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.SuccessRate())
	assert.Nil(t, stats.AverageLatencyMs)
	assert.Equal(t, 6*time.Hour, stats.PeriodEnd.Sub(stats.PeriodStart))
}

func TestBackendFailureMessageIsKept(t *testing.T) {
	f := newFakeBackend()
	repos, _ := setup(t, f)

	_, err := repos.Probes.Stats(context.Background(), "paused", 24)
	require.Error(t, err)
	assert.True(t, perrors.IsDecoding(err))
	assert.ErrorIs(t, err, wire.ErrNoData)
	assert.Contains(t, perrors.Describe(err), "Endpoint is paused")

	_, err = repos.Endpoints.Health(context.Background(), "e1")
	assert.Contains(t, perrors.Describe(err), "No health data")
}

func TestDashboardRetriesAndMapsMissingHealth(t *testing.T) {
	f := newFakeBackend()
	f.failFirst["GET /v1/dashboard"] = 1
	repos, _ := setup(t, f)

	dash, err := repos.Dashboard.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("GET /v1/dashboard"))
	require.Len(t, dash.Endpoints, 1)
	assert.Equal(t, domain.StatusUnknown, dash.Endpoints[0].Status())
}

func TestDashboardExhaustion(t *testing.T) {
	f := newFakeBackend()
	f.failFirst["GET /v1/dashboard"] = 10
	repos, _ := setup(t, f)

	_, err := repos.Dashboard.Get(context.Background())
	kind, _ := perrors.TransportKindOf(err)
	assert.Equal(t, perrors.KindServerError, kind)
	assert.Equal(t, 3, f.count("GET /v1/dashboard"))
}

func TestUsersCarrySessionID(t *testing.T) {
	f := newFakeBackend()
	repos, sess := setup(t, f)
	ctx := context.Background()

	user, err := repos.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	sess.Clear()
	require.NoError(t, repos.Users.RegisterDeviceToken(ctx, "tok"))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.userIDs, 2)
	assert.Equal(t, "user-1", f.userIDs[0])
	assert.Equal(t, "", f.userIDs[1])
}
