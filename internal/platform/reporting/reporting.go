// Package reporting aggregates clinic activity for administrators and
// professionals: appointment volume, consultation risk, trends, and the
// dashboard the front page renders.
package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TypeCount is appointment volume for one appointment type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// RiskCount is consultation volume for one risk level.
type RiskCount struct {
	RiskLevel string `json:"risk_level"`
	Count     int    `json:"count"`
}

// ProgramCount is consultation volume for one program of study.
type ProgramCount struct {
	Program string `json:"program"`
	Count   int    `json:"count"`
}

// MonthCount is appointment volume for one calendar month.
type MonthCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// HourCount is appointment volume for one hour of the day. Hour is the
// two-digit prefix of the appointment time, e.g. "09".
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// ProfessionalPerformance is one professional's appointment outcome summary.
type ProfessionalPerformance struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Name           string    `json:"name"`
	Assigned       int       `json:"assigned"`
	Completed      int       `json:"completed"`
	CompletionRate float64   `json:"completion_rate"`
}

// Summary is the dashboard payload.
type Summary struct {
	TotalPatients         int `json:"total_patients"`
	TotalProfessionals    int `json:"total_professionals"`
	TotalAppointments     int `json:"total_appointments"`
	TotalConsultations    int `json:"total_consultations"`
	AppointmentsThisMonth int `json:"appointments_this_month"`
	HighRiskConsultations int `json:"high_risk_consultations"`
}

// Alerts flags conditions that want same-day attention.
type Alerts struct {
	CriticalConsultations int `json:"critical_consultations"`
	AppointmentsToday     int `json:"appointments_today"`
	InactiveUsers         int `json:"inactive_users"`
}

// Repository runs the aggregation queries. Implementations decide the
// ordering guarantees documented per method.
type Repository interface {
	// AppointmentsByType orders by count descending.
	AppointmentsByType(ctx context.Context) ([]TypeCount, error)
	// ConsultationsByRiskLevel orders by count descending.
	ConsultationsByRiskLevel(ctx context.Context) ([]RiskCount, error)
	// ConsultationsByProgram joins through the patient profile and orders
	// by count descending.
	ConsultationsByProgram(ctx context.Context) ([]ProgramCount, error)
	// MonthlyTrend counts appointments by appointment date since `since`,
	// ordered by (year, month) ascending. The grouping is on the booked
	// date, not on when a consultation was recorded.
	MonthlyTrend(ctx context.Context, since time.Time) ([]MonthCount, error)
	// BusiestHours orders by count descending.
	BusiestHours(ctx context.Context) ([]HourCount, error)
	// ProfessionalPerformance covers every active professional, including
	// those with no appointments.
	ProfessionalPerformance(ctx context.Context) ([]ProfessionalPerformance, error)
	DashboardSummary(ctx context.Context, monthStart time.Time) (*Summary, error)
	SystemAlerts(ctx context.Context, today time.Time) (*Alerts, error)
}

// Service answers report requests, fixing the time windows the repository
// queries need.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) AppointmentsByType(ctx context.Context) ([]TypeCount, error) {
	return s.repo.AppointmentsByType(ctx)
}

func (s *Service) ConsultationsByRiskLevel(ctx context.Context) ([]RiskCount, error) {
	return s.repo.ConsultationsByRiskLevel(ctx)
}

func (s *Service) ConsultationsByProgram(ctx context.Context) ([]ProgramCount, error) {
	return s.repo.ConsultationsByProgram(ctx)
}

// MonthlyTrend reports the trailing twelve months.
func (s *Service) MonthlyTrend(ctx context.Context) ([]MonthCount, error) {
	since := s.now().AddDate(-1, 0, 0)
	return s.repo.MonthlyTrend(ctx, since)
}

func (s *Service) BusiestHours(ctx context.Context) ([]HourCount, error) {
	return s.repo.BusiestHours(ctx)
}

// ProfessionalPerformance fills in the completion rate; a professional with
// no assigned appointments reports a rate of 0 rather than dividing by zero.
func (s *Service) ProfessionalPerformance(ctx context.Context) ([]ProfessionalPerformance, error) {
	perf, err := s.repo.ProfessionalPerformance(ctx)
	if err != nil {
		return nil, err
	}
	for i := range perf {
		if perf[i].Assigned > 0 {
			perf[i].CompletionRate = float64(perf[i].Completed) / float64(perf[i].Assigned)
		}
	}
	return perf, nil
}

func (s *Service) DashboardSummary(ctx context.Context) (*Summary, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.repo.DashboardSummary(ctx, monthStart)
}

func (s *Service) SystemAlerts(ctx context.Context) (*Alerts, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.SystemAlerts(ctx, today)
}
