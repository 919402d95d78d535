package user

import (
	"context"
)

type UserRepository interface {
	// List returns every known user ordered by name.
	List(ctx context.Context) ([]User, error)
}
