// internal/monitoring/detail.go
package monitoring

import (
	"context"

	"golang.org/x/sync/errgroup"

	"pulse/internal/domain"
)

// EndpointReader and ProbeReader are the repository methods the detail view
// needs. *repository.Endpoints and *repository.Probes satisfy them.
type EndpointReader interface {
	Get(ctx context.Context, id string) (domain.Endpoint, error)
	Health(ctx context.Context, id string) (domain.HealthSummary, error)
}

type ProbeReader interface {
	History(ctx context.Context, endpointID string, hours int) ([]domain.ProbeResult, error)
	Stats(ctx context.Context, endpointID string, hours int) (domain.ProbeStatistics, error)
}

// EndpointDetail is everything shown for one endpoint.
type EndpointDetail struct {
	Endpoint domain.Endpoint
	Health   domain.HealthSummary
	History  []domain.ProbeResult
	Stats    domain.ProbeStatistics
	Latency  []domain.LatencyPoint
}

// LatencyChartPoints is how many recent probes the latency series keeps.
const LatencyChartPoints = 50

// LoadEndpointDetail fetches the endpoint, its health, probe history and probe
// statistics concurrently. The first failure cancels the others and is returned.
func LoadEndpointDetail(ctx context.Context, endpoints EndpointReader, probes ProbeReader, id string, hours int) (*EndpointDetail, error) {
	g, ctx := errgroup.WithContext(ctx)
	detail := &EndpointDetail{}

	g.Go(func() error {
		ep, err := endpoints.Get(ctx, id)
		detail.Endpoint = ep
		return err
	})
	g.Go(func() error {
		health, err := endpoints.Health(ctx, id)
		detail.Health = health
		return err
	})
	g.Go(func() error {
		history, err := probes.History(ctx, id, hours)
		detail.History = history
		return err
	})
	g.Go(func() error {
		stats, err := probes.Stats(ctx, id, hours)
		detail.Stats = stats
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.Latency = domain.LatencySeries(detail.History, LatencyChartPoints)
	return detail, nil
}
