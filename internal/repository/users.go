// internal/repository/users.go
package repository

import (
	"context"

	"pulse/internal/api"
	"pulse/internal/domain"
	"pulse/internal/wire"
)

type Users struct {
	base
}

// Me returns the profile of the user stamped on the session.
func (r *Users) Me(ctx context.Context) (domain.User, error) {
	dto, err := fetch[wire.UserDTO](ctx, r.base, api.CurrentUser())
	if isNoData(err) {
		return domain.User{}, noData(err, "No user data")
	}
	if err != nil {
		return domain.User{}, err
	}
	return r.mapper.User(dto), nil
}

func (r *Users) RegisterDeviceToken(ctx context.Context, token string) error {
	_, err := r.call(ctx, api.RegisterDeviceToken(token))
	return err
}
