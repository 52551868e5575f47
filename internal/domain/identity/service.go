package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediconsult/mediconsult/internal/platform/auth"
)

type Service struct {
	users  UserRepository
	logger zerolog.Logger
}

func NewService(users UserRepository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// CreateUserInput carries everything needed to register a user. Which
// identifier field is required depends on the role.
type CreateUserInput struct {
	Name           string `json:"name"`
	NationalID     string `json:"national_id"`
	EnrollmentCode string `json:"enrollment_code"`
	Role           string `json:"role"`
	Password       string `json:"password"`
}

// CreateUser registers a user, enforcing the role/identifier pairing:
// professionals and admins carry a national ID, patients an enrollment code.
// Returns ErrDuplicateIdentifier when the identifier is already taken. The
// unique indexes on users close the check-then-insert race; the pre-check
// here only produces a friendlier early failure.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if !ValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}

	u := &User{Name: strings.TrimSpace(in.Name), Role: in.Role, Active: true}
	if usesNationalID(in.Role) {
		if in.NationalID == "" {
			return nil, fmt.Errorf("national_id is required for role %s", in.Role)
		}
		if existing, err := s.users.GetByNationalID(ctx, in.NationalID); err == nil && existing != nil {
			return nil, ErrDuplicateIdentifier
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.NationalID = &in.NationalID
	} else {
		if in.EnrollmentCode == "" {
			return nil, fmt.Errorf("enrollment_code is required for role %s", in.Role)
		}
		if existing, err := s.users.GetByEnrollmentCode(ctx, in.EnrollmentCode); err == nil && existing != nil {
			return nil, ErrDuplicateIdentifier
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.EnrollmentCode = &in.EnrollmentCode
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("role", u.Role).
		Msg("user registered")

	return u, nil
}

// Authenticate resolves an identifier to a user and verifies the password.
// An all-digits identifier is first tried as a national ID; regardless of
// shape, the enrollment-code lookup is always attempted as a fallback, since
// enrollment codes may themselves be numeric. Every failure mode returns
// ErrAuthFailed.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrAuthFailed
	}

	var u *User
	if isAllDigits(identifier) {
		found, err := s.users.GetByNationalID(ctx, identifier)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u = found
	}
	if u == nil {
		found, err := s.users.GetByEnrollmentCode(ctx, identifier)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u = found
	}

	if u == nil || !u.Active || !auth.VerifyPassword(password, u.PasswordHash) {
		s.logger.Warn().Str("identifier", identifier).Msg("login rejected")
		return nil, ErrAuthFailed
	}
	return u, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LoadPrincipal implements auth.PrincipalLoader for the session middleware.
func (s *Service) LoadPrincipal(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{ID: u.ID, Name: u.Name, Role: u.Role, Active: u.Active}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// ListProfessionals returns the professional directory used when booking an
// appointment. Deactivated professionals never appear, and the repository
// applies that filter before paging so the reported total matches.
func (s *Service) ListProfessionals(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListActiveByRole(ctx, RoleProfessional, limit, offset)
}

// SetActive toggles the account flag. Deactivated users fail authentication
// and lose authorization on their next request.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id.String()).Bool("active", active).Msg("account toggled")
	return nil
}

// EnsureAdmin creates the bootstrap admin account if no user with the given
// national ID exists yet. Used by the seed-admin command.
func (s *Service) EnsureAdmin(ctx context.Context, nationalID, password string) (*User, bool, error) {
	existing, err := s.users.GetByNationalID(ctx, nationalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	u, err := s.CreateUser(ctx, CreateUserInput{
		Name:       "Administrator",
		NationalID: nationalID,
		Role:       RoleAdmin,
		Password:   password,
	})
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
