// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pulse/internal/domain"
	perrors "pulse/internal/errors"
	"pulse/internal/transport"
	"pulse/internal/wire"
)

// Executor runs descriptors. *transport.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, d transport.Descriptor) ([]byte, error)
	ExecuteWithRetry(ctx context.Context, d transport.Descriptor, maxAttempts int) ([]byte, error)
}

// Repositories groups every repository over one executor and mapper.
type Repositories struct {
	Endpoints *Endpoints
	Incidents *Incidents
	Probes    *Probes
	Dashboard *Dashboard
	Users     *Users
}

func New(exec Executor, mapper *wire.Mapper) *Repositories {
	if mapper == nil {
		mapper = wire.NewMapper()
	}
	b := base{exec: exec, mapper: mapper}
	return &Repositories{
		Endpoints: &Endpoints{b},
		Incidents: &Incidents{b},
		Probes:    &Probes{b},
		Dashboard: &Dashboard{b},
		Users:     &Users{b},
	}
}

type base struct {
	exec   Executor
	mapper *wire.Mapper
}

// call retries reads and idempotent writes. POST and PATCH get one attempt
// since a lost response would leave the write in an unknown state.
func (b base) call(ctx context.Context, d transport.Descriptor) ([]byte, error) {
	switch d.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, "":
		return b.exec.ExecuteWithRetry(ctx, d, 0)
	default:
		return b.exec.Execute(ctx, d)
	}
}

func (b base) now() time.Time {
	if b.mapper.Now != nil {
		return b.mapper.Now()
	}
	return time.Now()
}

func fetch[T any](ctx context.Context, b base, d transport.Descriptor) (T, error) {
	var zero T
	body, err := b.call(ctx, d)
	if err != nil {
		return zero, err
	}
	out, _, err := wire.DecodeData[T](body)
	return out, err
}

func isNoData(err error) bool {
	return errors.Is(err, wire.ErrNoData)
}

func notFound() error {
	return &perrors.TransportError{Kind: perrors.KindNotFound, StatusCode: http.StatusNotFound}
}

// noData reports an empty envelope, preferring the backend's own message.
func noData(err error, details string) error {
	if msg, ok := wire.BackendMessage(err); ok {
		details = msg
	}
	return perrors.Decoding(details, err)
}

// precondition turns a rejected URL into the InvalidURL transport kind and
// leaves other validation failures as they are.
func precondition(err error) error {
	if errors.Is(err, domain.ErrInvalidURL) {
		return perrors.InvalidURL(err)
	}
	return err
}
