// internal/repository/incidents.go
package repository

import (
	"context"

	"pulse/internal/api"
	"pulse/internal/domain"
	"pulse/internal/wire"
)

type Incidents struct {
	base
}

// List returns recent incidents, optionally filtered by status. The backend
// caps the result at the default limit.
func (r *Incidents) List(ctx context.Context, status *domain.IncidentStatus) ([]domain.Incident, error) {
	dtos, err := fetch[[]wire.IncidentDTO](ctx, r.base, api.ListIncidents(status, 0))
	if isNoData(err) {
		return []domain.Incident{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.mapper.Incidents(dtos), nil
}

// Get returns the incident with its timeline in ascending time order.
func (r *Incidents) Get(ctx context.Context, id string) (domain.IncidentDetail, error) {
	dto, err := fetch[wire.IncidentWithTimelineDTO](ctx, r.base, api.GetIncident(id))
	if isNoData(err) {
		return domain.IncidentDetail{}, notFound()
	}
	if err != nil {
		return domain.IncidentDetail{}, err
	}
	return r.mapper.IncidentDetail(dto), nil
}

// UpdateStatus sends one transition request. Callers re-fetch with Get to see
// the resulting timeline.
func (r *Incidents) UpdateStatus(ctx context.Context, id string, status domain.IncidentStatus, message string) error {
	_, err := r.call(ctx, api.UpdateIncidentStatus(id, status, message))
	return err
}

func (r *Incidents) Stats(ctx context.Context) (domain.IncidentStats, error) {
	dto, err := fetch[wire.IncidentStatsDTO](ctx, r.base, api.IncidentStats())
	if isNoData(err) {
		return domain.IncidentStats{}, noData(err, "No stats data")
	}
	if err != nil {
		return domain.IncidentStats{}, err
	}
	return r.mapper.IncidentStats(dto), nil
}
