package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediconsult/mediconsult/internal/platform/db"
)

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, patient_id, professional_id, date, time, type, reason, status, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProfessionalID, &a.Date, &a.Time,
		&a.Type, &a.Reason, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, professional_id, date, time, type, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		a.ID, a.PatientID, a.ProfessionalID, a.Date, a.Time, a.Type, a.Reason, a.Status,
	).Scan(&a.CreatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *appointmentRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, `WHERE professional_id = $1`, []interface{}{professionalID}, limit, offset)
}

func (r *appointmentRepoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Appointment, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+apptCols+` FROM appointments %s ORDER BY date DESC, time DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	rows, err := conn.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// =========== Consultation Repository ===========

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

const consultCols = `id, appointment_id, diagnosis, treatment, notes, risk_level, recorded_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.AppointmentID, &c.Diagnosis, &c.Treatment,
		&c.Notes, &c.RiskLevel, &c.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO consultations (id, appointment_id, diagnosis, treatment, notes, risk_level)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING recorded_at`,
		c.ID, c.AppointmentID, c.Diagnosis, c.Treatment, c.Notes, c.RiskLevel,
	).Scan(&c.RecordedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// The unique index on appointment_id backstops concurrent
		// submissions that both passed the guard.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrInvalidState
		}
		return err
	}
	return nil
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consultations WHERE id = $1`, id))
}

func (r *consultationRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	return scanConsultation(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consultations WHERE appointment_id = $1`, appointmentID))
}

func (r *consultationRepoPG) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM consultations WHERE appointment_id = $1)`,
		appointmentID).Scan(&exists)
	return exists, err
}

func (r *consultationRepoPG) List(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *consultationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return r.listWhere(ctx,
		`JOIN appointments a ON a.id = c.appointment_id WHERE a.patient_id = $1`,
		[]interface{}{patientID}, limit, offset)
}

func (r *consultationRepoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return r.listWhere(ctx,
		`JOIN appointments a ON a.id = c.appointment_id WHERE a.professional_id = $1`,
		[]interface{}{professionalID}, limit, offset)
}

func (r *consultationRepoPG) ListHighRisk(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return r.listWhere(ctx, `WHERE c.risk_level IN ('HIGH','CRITICAL')`, nil, limit, offset)
}

func (r *consultationRepoPG) listWhere(ctx context.Context, clause string, args []interface{}, limit, offset int) ([]*Consultation, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations c `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT c.id, c.appointment_id, c.diagnosis, c.treatment, c.notes, c.risk_level, c.recorded_at
		FROM consultations c %s ORDER BY c.recorded_at DESC LIMIT $%d OFFSET $%d`, clause, n+1, n+2)
	rows, err := conn.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
