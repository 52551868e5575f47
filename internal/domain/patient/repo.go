package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patient profiles. Get returns (nil, ErrNotFound) when
// the user has not completed a profile.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
}
