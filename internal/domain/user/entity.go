package user

import (
	"fmt"
	"strings"
)

// User is the roster entry attendance is tracked for. Users are managed elsewhere and only listed here.
type User struct {
	ID            string
	Name          string
	ContactNumber *string
	RoleID        *string
}

// ParseSeed parses an "id:name" entry as used by MEMORY_SEED_USERS.
func ParseSeed(entry string) (User, error) {
	id, name, ok := strings.Cut(entry, ":")
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if !ok || id == "" || name == "" {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidSeedUser, entry)
	}
	return User{ID: id, Name: name}, nil
}
