package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a user has no profile yet.
	ErrNotFound = errors.New("patient profile not found")

	// ErrAlreadyExists is returned when a profile was already completed.
	ErrAlreadyExists = errors.New("patient profile already exists")

	// ErrNotPatient is returned when the target user does not hold the
	// PATIENT role.
	ErrNotPatient = errors.New("user is not a patient")
)

// Profile is the complete-profile extension of a PATIENT user, keyed by the
// owning user's ID (1:1).
type Profile struct {
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	ProgramOfStudy   string    `db:"program_of_study" json:"program_of_study"`
	BirthDate        time.Time `db:"birth_date" json:"birth_date"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	Address          *string   `db:"address" json:"address,omitempty"`
	EmergencyContact *string   `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   *string   `db:"emergency_phone" json:"emergency_phone,omitempty"`
	OriginLocation   *string   `db:"origin_location" json:"origin_location,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Age derives the patient's age in whole years at the given reference time.
func (p *Profile) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	anniversary := time.Date(now.Year(), p.BirthDate.Month(), p.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
