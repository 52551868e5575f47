package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediconsult/mediconsult/internal/domain/identity"
)

type Service struct {
	profiles Repository
	users    identity.UserRepository
	logger   zerolog.Logger
}

func NewService(profiles Repository, users identity.UserRepository, logger zerolog.Logger) *Service {
	return &Service{profiles: profiles, users: users, logger: logger}
}

// ProfileInput is the complete-profile payload.
type ProfileInput struct {
	ProgramOfStudy   string  `json:"program_of_study"`
	BirthDate        string  `json:"birth_date"` // YYYY-MM-DD
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	EmergencyPhone   *string `json:"emergency_phone"`
	OriginLocation   *string `json:"origin_location"`
}

func (in *ProfileInput) validate() (time.Time, error) {
	if strings.TrimSpace(in.ProgramOfStudy) == "" {
		return time.Time{}, fmt.Errorf("program_of_study is required")
	}
	birth, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("birth_date must be YYYY-MM-DD")
	}
	if birth.After(time.Now()) {
		return time.Time{}, fmt.Errorf("birth_date cannot be in the future")
	}
	return birth, nil
}

// CompleteProfile creates the 1:1 profile for a PATIENT user. Fails with
// ErrNotPatient when the target holds a different role and ErrAlreadyExists
// when a profile was completed before.
func (s *Service) CompleteProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != identity.RolePatient {
		return nil, ErrNotPatient
	}

	birth, err := in.validate()
	if err != nil {
		return nil, err
	}

	p := &Profile{
		UserID:           userID,
		ProgramOfStudy:   strings.TrimSpace(in.ProgramOfStudy),
		BirthDate:        birth,
		Phone:            in.Phone,
		Address:          in.Address,
		EmergencyContact: in.EmergencyContact,
		EmergencyPhone:   in.EmergencyPhone,
		OriginLocation:   in.OriginLocation,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID.String()).Msg("patient profile completed")
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

// UpdateProfile replaces the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*Profile, error) {
	birth, err := in.validate()
	if err != nil {
		return nil, err
	}

	p := &Profile{
		UserID:           userID,
		ProgramOfStudy:   strings.TrimSpace(in.ProgramOfStudy),
		BirthDate:        birth,
		Phone:            in.Phone,
		Address:          in.Address,
		EmergencyContact: in.EmergencyContact,
		EmergencyPhone:   in.EmergencyPhone,
		OriginLocation:   in.OriginLocation,
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns profiles of active patients.
func (s *Service) ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.profiles.List(ctx, limit, offset)
}
