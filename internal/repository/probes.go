// internal/repository/probes.go
package repository

import (
	"context"
	"time"

	"pulse/internal/api"
	"pulse/internal/domain"
	"pulse/internal/wire"
)

type Probes struct {
	base
}

func normalizeHours(hours int) int {
	if hours <= 0 {
		return api.DefaultProbeHours
	}
	return hours
}

// History returns probe results of the last hours. Missing data is an empty list.
func (r *Probes) History(ctx context.Context, endpointID string, hours int) ([]domain.ProbeResult, error) {
	dtos, err := fetch[[]wire.ProbeResultDTO](ctx, r.base, api.ProbeHistory(endpointID, normalizeHours(hours)))
	if isNoData(err) {
		return []domain.ProbeResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.mapper.ProbeResults(dtos), nil
}

// Stats aggregates the last hours. The period is the requested window ending now.
func (r *Probes) Stats(ctx context.Context, endpointID string, hours int) (domain.ProbeStatistics, error) {
	hours = normalizeHours(hours)
	end := r.now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	dto, err := fetch[wire.ProbeStatsDTO](ctx, r.base, api.ProbeStats(endpointID, hours))
	if isNoData(err) {
		return domain.ProbeStatistics{}, noData(err, "No probe statistics")
	}
	if err != nil {
		return domain.ProbeStatistics{}, err
	}
	return r.mapper.ProbeStats(dto, endpointID, start, end), nil
}
