// internal/repository/endpoints.go
package repository

import (
	"context"

	"pulse/internal/api"
	"pulse/internal/domain"
	"pulse/internal/wire"
)

type Endpoints struct {
	base
}

// List returns every endpoint of the signed-in user. Missing data is an empty list.
func (r *Endpoints) List(ctx context.Context) ([]domain.Endpoint, error) {
	dtos, err := fetch[[]wire.EndpointDTO](ctx, r.base, api.ListEndpoints())
	if isNoData(err) {
		return []domain.Endpoint{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.mapper.Endpoints(dtos), nil
}

func (r *Endpoints) Get(ctx context.Context, id string) (domain.Endpoint, error) {
	dto, err := fetch[wire.EndpointDTO](ctx, r.base, api.GetEndpoint(id))
	if isNoData(err) {
		return domain.Endpoint{}, notFound()
	}
	if err != nil {
		return domain.Endpoint{}, err
	}
	return r.mapper.Endpoint(dto), nil
}

func (r *Endpoints) Health(ctx context.Context, id string) (domain.HealthSummary, error) {
	dto, err := fetch[wire.HealthSummaryDTO](ctx, r.base, api.EndpointHealth(id))
	if isNoData(err) {
		return domain.HealthSummary{}, noData(err, "No health data")
	}
	if err != nil {
		return domain.HealthSummary{}, err
	}
	return r.mapper.Health(dto), nil
}

// Create validates e locally before sending it. The request is not retried.
func (r *Endpoints) Create(ctx context.Context, e domain.Endpoint) (domain.Endpoint, error) {
	if err := e.Validate(); err != nil {
		return domain.Endpoint{}, precondition(err)
	}

	dto, err := fetch[wire.EndpointDTO](ctx, r.base, api.CreateEndpoint(wire.NewCreateEndpointRequest(e)))
	if isNoData(err) {
		return domain.Endpoint{}, noData(err, "Failed to create endpoint")
	}
	if err != nil {
		return domain.Endpoint{}, err
	}
	return r.mapper.Endpoint(dto), nil
}

func (r *Endpoints) Update(ctx context.Context, id string, patch domain.EndpointPatch) (domain.Endpoint, error) {
	if err := patch.Validate(); err != nil {
		return domain.Endpoint{}, precondition(err)
	}

	dto, err := fetch[wire.EndpointDTO](ctx, r.base, api.UpdateEndpoint(id, wire.NewUpdateEndpointRequest(patch)))
	if isNoData(err) {
		return domain.Endpoint{}, noData(err, "Failed to update endpoint")
	}
	if err != nil {
		return domain.Endpoint{}, err
	}
	return r.mapper.Endpoint(dto), nil
}

// Delete succeeds on any 2xx; the response body is not inspected.
func (r *Endpoints) Delete(ctx context.Context, id string) error {
	_, err := r.call(ctx, api.DeleteEndpoint(id))
	return err
}
