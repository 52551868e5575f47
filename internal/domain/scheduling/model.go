package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. SCHEDULED is the initial state; COMPLETED is reached
// only by recording a consultation; CANCELLED is an administrative action.
const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Appointment types.
const (
	TypeMedical       = "MEDICAL"
	TypePsychological = "PSYCHOLOGICAL"
	TypeEmergency     = "EMERGENCY"
)

// Consultation risk levels.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

var (
	// ErrNotFound is returned when an appointment or consultation does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrPastDate is returned when an appointment is booked for a date
	// before today.
	ErrPastDate = errors.New("appointment date is in the past")

	// ErrInvalidState is returned when a transition is not allowed from
	// the appointment's current status, including attempts to record a
	// second consultation.
	ErrInvalidState = errors.New("invalid appointment state")
)

// Appointment maps to the appointments table. Time is the wall-clock slot in
// HH:MM form; no overlap check is performed between appointments.
type Appointment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Date           time.Time `db:"date" json:"date"`
	Time           string    `db:"time" json:"time"`
	Type           string    `db:"type" json:"type"`
	Reason         *string   `db:"reason" json:"reason,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Consultation maps to the consultations table, at most one per appointment.
type Consultation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Treatment     *string   `db:"treatment" json:"treatment,omitempty"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	RiskLevel     string    `db:"risk_level" json:"risk_level"`
	RecordedAt    time.Time `db:"recorded_at" json:"recorded_at"`
}

// ValidType reports whether t is a known appointment type.
func ValidType(t string) bool {
	return t == TypeMedical || t == TypePsychological || t == TypeEmergency
}

// ValidRiskLevel reports whether r is a known risk level.
func ValidRiskLevel(r string) bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh || r == RiskCritical
}

// HighRisk reports whether the consultation needs follow-up attention.
func (c *Consultation) HighRisk() bool {
	return c.RiskLevel == RiskHigh || c.RiskLevel == RiskCritical
}
