// internal/repository/dashboard.go
package repository

import (
	"context"

	"pulse/internal/api"
	"pulse/internal/domain"
	"pulse/internal/wire"
)

type Dashboard struct {
	base
}

func (r *Dashboard) Get(ctx context.Context) (domain.DashboardData, error) {
	dto, err := fetch[wire.DashboardDTO](ctx, r.base, api.Dashboard())
	if isNoData(err) {
		return domain.DashboardData{}, noData(err, "No dashboard data")
	}
	if err != nil {
		return domain.DashboardData{}, err
	}
	return r.mapper.Dashboard(dto), nil
}
