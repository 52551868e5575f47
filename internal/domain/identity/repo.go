package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users. Lookups return (nil, ErrNotFound) when no
// row matches; callers decide whether that is an error.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByNationalID(ctx context.Context, nationalID string) (*User, error)
	GetByEnrollmentCode(ctx context.Context, code string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	// ListActiveByRole pages over active accounts with the given role. The
	// filter lives in the query so the total and the page agree.
	ListActiveByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
