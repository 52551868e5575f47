package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Roles carried on User records and session tokens.
const (
	RoleAdmin        = "ADMIN"
	RoleProfessional = "PROFESSIONAL"
	RolePatient      = "PATIENT"
)

var (
	// ErrNotFound is returned by lookups when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateIdentifier is returned when a national ID or enrollment
	// code is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already registered")

	// ErrAuthFailed covers every credential failure: unknown identifier,
	// deactivated account, wrong password. Callers must not be able to
	// distinguish which one happened.
	ErrAuthFailed = errors.New("authentication failed")
)

// User maps to the users table. Exactly one of NationalID and EnrollmentCode
// is set: patients carry an enrollment code, professionals and admins carry a
// national ID.
type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	NationalID     *string   `db:"national_id" json:"national_id,omitempty"`
	EnrollmentCode *string   `db:"enrollment_code" json:"enrollment_code,omitempty"`
	Role           string    `db:"role" json:"role"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Identifier returns whichever identifier the user carries.
func (u *User) Identifier() string {
	if u.NationalID != nil {
		return *u.NationalID
	}
	if u.EnrollmentCode != nil {
		return *u.EnrollmentCode
	}
	return ""
}

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleProfessional || r == RolePatient
}

// usesNationalID reports whether the role identifies by national ID rather
// than enrollment code.
func usesNationalID(role string) bool {
	return role == RoleAdmin || role == RoleProfessional
}
