package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// AppointmentRepository persists appointments. Implementations honor a
// transaction carried in the context so that the consultation unit of work
// sees its own locks.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate locks the row for the remainder of the surrounding
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}

// ConsultationRepository persists consultations.
type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error)
	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Consultation, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	ListHighRisk(ctx context.Context, limit, offset int) ([]*Consultation, int, error)
}
