package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) AppointmentsByType(ctx context.Context) ([]TypeCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, COUNT(*) FROM appointments GROUP BY type ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("appointments by type: %w", err)
	}
	defer rows.Close()

	out := []TypeCount{}
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *repoPG) ConsultationsByRiskLevel(ctx context.Context) ([]RiskCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT risk_level, COUNT(*) FROM consultations GROUP BY risk_level ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("consultations by risk: %w", err)
	}
	defer rows.Close()

	out := []RiskCount{}
	for rows.Next() {
		var rc RiskCount
		if err := rows.Scan(&rc.RiskLevel, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *repoPG) ConsultationsByProgram(ctx context.Context) ([]ProgramCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pp.program_of_study, COUNT(*)
		FROM consultations c
		JOIN appointments a ON a.id = c.appointment_id
		JOIN patient_profiles pp ON pp.user_id = a.patient_id
		GROUP BY pp.program_of_study
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("consultations by program: %w", err)
	}
	defer rows.Close()

	out := []ProgramCount{}
	for rows.Next() {
		var pc ProgramCount
		if err := rows.Scan(&pc.Program, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (r *repoPG) MonthlyTrend(ctx context.Context, since time.Time) ([]MonthCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM date)::int,
		       EXTRACT(MONTH FROM date)::int,
		       COUNT(*)
		FROM appointments
		WHERE date >= $1
		GROUP BY 1, 2
		ORDER BY 1, 2`, since)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	defer rows.Close()

	out := []MonthCount{}
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// BusiestHours groups on the hour prefix of the appointment time, which is
// stored as "HH:MM".
func (r *repoPG) BusiestHours(ctx context.Context) ([]HourCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT substring(time from 1 for 2), COUNT(*)
		FROM appointments
		GROUP BY 1
		ORDER BY COUNT(*) DESC, 1`)
	if err != nil {
		return nil, fmt.Errorf("busiest hours: %w", err)
	}
	defer rows.Close()

	out := []HourCount{}
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, err
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

func (r *repoPG) ProfessionalPerformance(ctx context.Context) ([]ProfessionalPerformance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name,
		       COUNT(a.id),
		       COUNT(a.id) FILTER (WHERE a.status = 'COMPLETED')
		FROM users u
		LEFT JOIN appointments a ON a.professional_id = u.id
		WHERE u.role = 'PROFESSIONAL' AND u.active
		GROUP BY u.id, u.name
		ORDER BY u.name`)
	if err != nil {
		return nil, fmt.Errorf("professional performance: %w", err)
	}
	defer rows.Close()

	out := []ProfessionalPerformance{}
	for rows.Next() {
		var pp ProfessionalPerformance
		if err := rows.Scan(&pp.ProfessionalID, &pp.Name, &pp.Assigned, &pp.Completed); err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

func (r *repoPG) DashboardSummary(ctx context.Context, monthStart time.Time) (*Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM users WHERE role = 'PATIENT' AND active),
		  (SELECT COUNT(*) FROM users WHERE role = 'PROFESSIONAL' AND active),
		  (SELECT COUNT(*) FROM appointments),
		  (SELECT COUNT(*) FROM consultations),
		  (SELECT COUNT(*) FROM appointments WHERE date >= $1),
		  (SELECT COUNT(*) FROM consultations WHERE risk_level IN ('HIGH', 'CRITICAL'))`,
		monthStart).Scan(
		&s.TotalPatients,
		&s.TotalProfessionals,
		&s.TotalAppointments,
		&s.TotalConsultations,
		&s.AppointmentsThisMonth,
		&s.HighRiskConsultations,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &s, nil
}

func (r *repoPG) SystemAlerts(ctx context.Context, today time.Time) (*Alerts, error) {
	var a Alerts
	err := r.pool.QueryRow(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM consultations WHERE risk_level = 'CRITICAL'),
		  (SELECT COUNT(*) FROM appointments WHERE date = $1 AND status = 'SCHEDULED'),
		  (SELECT COUNT(*) FROM users WHERE NOT active)`,
		today).Scan(&a.CriticalConsultations, &a.AppointmentsToday, &a.InactiveUsers)
	if err != nil {
		return nil, fmt.Errorf("system alerts: %w", err)
	}
	return &a, nil
}
