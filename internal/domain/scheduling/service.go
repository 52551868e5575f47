package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mediconsult/mediconsult/internal/domain/identity"
	"github.com/mediconsult/mediconsult/internal/platform/db"
)

// TxRunner executes fn inside a single unit of work. The production runner
// opens a database transaction and carries it in the context so that the
// repositories participate in it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolTxRunner returns the pgx-backed TxRunner.
func PoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

type Service struct {
	appts    AppointmentRepository
	consults ConsultationRepository
	users    identity.UserRepository
	tx       TxRunner
	logger   zerolog.Logger
}

func NewService(appts AppointmentRepository, consults ConsultationRepository,
	users identity.UserRepository, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{appts: appts, consults: consults, users: users, tx: tx, logger: logger}
}

// CreateAppointmentInput is the booking payload.
type CreateAppointmentInput struct {
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	Date           string // YYYY-MM-DD
	Time           string // HH:MM
	Type           string
	Reason         *string
}

// CreateAppointment books a SCHEDULED appointment. The date must not be
// before today, evaluated server-side. No overlap check is performed between
// appointments for the same professional.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if !ValidType(in.Type) {
		return nil, fmt.Errorf("unknown appointment type %q", in.Type)
	}

	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", in.Time); err != nil {
		return nil, fmt.Errorf("time must be HH:MM")
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return nil, ErrPastDate
	}

	pro, err := s.users.GetByID(ctx, in.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("professional lookup: %w", err)
	}
	if pro.Role != identity.RoleProfessional || !pro.Active {
		return nil, fmt.Errorf("professional_id does not refer to an active professional")
	}

	pat, err := s.users.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	if pat.Role != identity.RolePatient {
		return nil, fmt.Errorf("patient_id does not refer to a patient")
	}

	a := &Appointment{
		PatientID:      in.PatientID,
		ProfessionalID: in.ProfessionalID,
		Date:           date,
		Time:           in.Time,
		Type:           in.Type,
		Reason:         in.Reason,
		Status:         StatusScheduled,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("professional_id", a.ProfessionalID.String()).
		Str("date", in.Date).
		Msg("appointment booked")

	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByProfessional(ctx, professionalID, limit, offset)
}

// CancelAppointment is the only status change reachable outside consultation
// recording: SCHEDULED → CANCELLED. Any other transition is ErrInvalidState.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var out *Appointment
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusScheduled {
			return ErrInvalidState
		}
		if err := s.appts.UpdateStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		a.Status = StatusCancelled
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return out, nil
}

// CanCreateConsultation implements the lifecycle guard: the appointment is
// still SCHEDULED and carries no consultation. The answer is advisory outside
// a transaction; RecordConsultation re-checks under a row lock.
func (s *Service) CanCreateConsultation(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	if a.Status != StatusScheduled {
		return false, nil
	}
	exists, err := s.consults.ExistsForAppointment(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// RecordConsultationInput is the consultation payload.
type RecordConsultationInput struct {
	AppointmentID uuid.UUID
	Diagnosis     string
	Treatment     *string
	Notes         *string
	RiskLevel     string
}

// RecordConsultation creates the consultation and completes the appointment
// as one unit of work: the appointment row is locked, the guard re-checked,
// and the insert and COMPLETED status update either both commit or neither
// does. Two concurrent submissions for the same appointment yield exactly one
// success; the loser gets ErrInvalidState, either from the guard or from the
// unique constraint on appointment_id.
func (s *Service) RecordConsultation(ctx context.Context, in RecordConsultationInput) (*Consultation, error) {
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, fmt.Errorf("diagnosis is required")
	}
	if in.RiskLevel == "" {
		in.RiskLevel = RiskLow
	}
	if !ValidRiskLevel(in.RiskLevel) {
		return nil, fmt.Errorf("unknown risk level %q", in.RiskLevel)
	}

	c := &Consultation{
		AppointmentID: in.AppointmentID,
		Diagnosis:     strings.TrimSpace(in.Diagnosis),
		Treatment:     in.Treatment,
		Notes:         in.Notes,
		RiskLevel:     in.RiskLevel,
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetForUpdate(ctx, in.AppointmentID)
		if err != nil {
			return err
		}
		if a.Status != StatusScheduled {
			return ErrInvalidState
		}
		exists, err := s.consults.ExistsForAppointment(ctx, in.AppointmentID)
		if err != nil {
			return err
		}
		if exists {
			return ErrInvalidState
		}

		if err := s.consults.Create(ctx, c); err != nil {
			return err
		}
		return s.appts.UpdateStatus(ctx, in.AppointmentID, StatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("consultation_id", c.ID.String()).
		Str("appointment_id", in.AppointmentID.String()).
		Str("risk_level", c.RiskLevel).
		Msg("consultation recorded")

	return c, nil
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.consults.GetByID(ctx, id)
}

func (s *Service) GetConsultationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	return s.consults.GetByAppointment(ctx, appointmentID)
}

func (s *Service) ListConsultations(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return s.consults.List(ctx, limit, offset)
}

func (s *Service) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.consults.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListConsultationsByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.consults.ListByProfessional(ctx, professionalID, limit, offset)
}

// ListHighRiskConsultations returns HIGH and CRITICAL consultations for
// follow-up.
func (s *Service) ListHighRiskConsultations(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return s.consults.ListHighRisk(ctx, limit, offset)
}
