// internal/api/descriptors.go
package api

import (
	"net/http"
	"net/url"
	"strconv"

	"pulse/internal/domain"
	"pulse/internal/transport"
	"pulse/internal/wire"
)

// Operation labels used for logging and metrics.
const (
	OpListEndpoints       = "list_endpoints"
	OpGetEndpoint         = "get_endpoint"
	OpCreateEndpoint      = "create_endpoint"
	OpUpdateEndpoint      = "update_endpoint"
	OpDeleteEndpoint      = "delete_endpoint"
	OpEndpointHealth      = "endpoint_health"
	OpListIncidents       = "list_incidents"
	OpGetIncident         = "get_incident"
	OpUpdateIncident      = "update_incident_status"
	OpIncidentStats       = "incident_stats"
	OpProbeHistory        = "probe_history"
	OpProbeStats          = "probe_stats"
	OpDashboard           = "dashboard"
	OpCurrentUser         = "current_user"
	OpRegisterDeviceToken = "register_device_token"
)

const (
	DefaultIncidentLimit = 50
	DefaultProbeHours    = 24
)

func idPath(prefix, id string) string {
	return prefix + url.PathEscape(id)
}

func get(op, path string) transport.Descriptor {
	return transport.Descriptor{Op: op, Method: http.MethodGet, Path: path}
}

func ListEndpoints() transport.Descriptor {
	return get(OpListEndpoints, "/endpoints")
}

func GetEndpoint(id string) transport.Descriptor {
	return get(OpGetEndpoint, idPath("/endpoints/", id))
}

func CreateEndpoint(req wire.CreateEndpointRequest) transport.Descriptor {
	return transport.Descriptor{Op: OpCreateEndpoint, Method: http.MethodPost, Path: "/endpoints", Body: req}
}

func UpdateEndpoint(id string, req wire.UpdateEndpointRequest) transport.Descriptor {
	return transport.Descriptor{Op: OpUpdateEndpoint, Method: http.MethodPut, Path: idPath("/endpoints/", id), Body: req}
}

func DeleteEndpoint(id string) transport.Descriptor {
	return transport.Descriptor{Op: OpDeleteEndpoint, Method: http.MethodDelete, Path: idPath("/endpoints/", id)}
}

func EndpointHealth(id string) transport.Descriptor {
	return get(OpEndpointHealth, idPath("/endpoints/", id)+"/health")
}

// ListIncidents filters by status when one is given. limit <= 0 uses DefaultIncidentLimit.
func ListIncidents(status *domain.IncidentStatus, limit int) transport.Descriptor {
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	q := url.Values{}
	if status != nil {
		q.Set("status", string(*status))
	}
	q.Set("limit", strconv.Itoa(limit))

	d := get(OpListIncidents, "/incidents")
	d.Query = q
	return d
}

func GetIncident(id string) transport.Descriptor {
	return get(OpGetIncident, idPath("/incidents/", id))
}

func UpdateIncidentStatus(id string, status domain.IncidentStatus, message string) transport.Descriptor {
	return transport.Descriptor{
		Op:     OpUpdateIncident,
		Method: http.MethodPatch,
		Path:   idPath("/incidents/", id) + "/status",
		Body:   wire.UpdateStatusRequest{Status: string(status), Message: message},
	}
}

func IncidentStats() transport.Descriptor {
	return get(OpIncidentStats, "/incidents/stats/summary")
}

func hoursQuery(hours int) url.Values {
	if hours <= 0 {
		hours = DefaultProbeHours
	}
	return url.Values{"hours": []string{strconv.Itoa(hours)}}
}

// ProbeHistory covers the last hours; hours <= 0 uses DefaultProbeHours.
func ProbeHistory(endpointID string, hours int) transport.Descriptor {
	d := get(OpProbeHistory, idPath("/probes/history/", endpointID))
	d.Query = hoursQuery(hours)
	return d
}

func ProbeStats(endpointID string, hours int) transport.Descriptor {
	d := get(OpProbeStats, idPath("/probes/stats/", endpointID))
	d.Query = hoursQuery(hours)
	return d
}

func Dashboard() transport.Descriptor {
	return get(OpDashboard, "/dashboard")
}

func CurrentUser() transport.Descriptor {
	return get(OpCurrentUser, "/users/me")
}

func RegisterDeviceToken(token string) transport.Descriptor {
	return transport.Descriptor{
		Op:     OpRegisterDeviceToken,
		Method: http.MethodPost,
		Path:   "/users/device-token",
		Body:   wire.DeviceTokenRequest{DeviceToken: token},
	}
}
