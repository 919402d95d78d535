package user

import "errors"

var (
	ErrInvalidSeedUser = errors.New("seed user must be formatted as id:name")
)
