package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appointment-scheduler/internal/model"
)

const appointmentColumns = `id, appointment_date, to_char(appointment_time, 'HH24:MI'), provider_id, requester_id,
	case_id, status, notes, meeting_link, external_event_ref, meeting_source, initiated_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	var status string
	var source *string
	if err := row.Scan(&a.ID, &a.Date, &a.Time, &a.ProviderID, &a.RequesterID,
		&a.CaseID, &status, &a.Notes, &a.MeetingLink, &a.ExternalEventRef, &source,
		&a.InitiatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = model.Status(status)
	if source != nil {
		ms := model.MeetingSource(*source)
		a.MeetingSource = &ms
	}
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	now := s.now()
	q := `INSERT INTO appointments
	      (id, appointment_date, appointment_time, provider_id, requester_id, case_id, status, notes,
	       meeting_link, external_event_ref, meeting_source, initiated_by, created_at, updated_at)
	      VALUES ($1,$2,$3::time,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`
	_, err := s.DB.Exec(ctx, q,
		a.ID, a.DateString(), a.Time, a.ProviderID, a.RequesterID, a.CaseID, string(a.Status), a.Notes,
		a.MeetingLink, a.ExternalEventRef, sourceArg(a.MeetingSource), a.InitiatedBy, now)
	if err != nil {
		return err
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id=$1`
	a, err := scanAppointment(s.DB.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// TransitionAppointment writes the status and meeting fields of a only when
// the stored status is still from.
func (s *Store) TransitionAppointment(ctx context.Context, a *model.Appointment, from model.Status) (bool, error) {
	q := `UPDATE appointments
	      SET status=$2, meeting_link=$3, external_event_ref=$4, meeting_source=$5, updated_at=$6
	      WHERE id=$1 AND status=$7
	      RETURNING updated_at`
	err := s.DB.QueryRow(ctx, q, a.ID, string(a.Status), a.MeetingLink, a.ExternalEventRef,
		sourceArg(a.MeetingSource), s.now(), string(from)).Scan(&a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForUserOnDate returns every appointment on date in which userID is
// either party.
func (s *Store) ListForUserOnDate(ctx context.Context, userID string, date time.Time) ([]model.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments
	      WHERE appointment_date=$2 AND (provider_id=$1 OR requester_id=$1)
	      ORDER BY appointment_time`
	return s.listAppointments(ctx, q, userID, date.Format(model.DateLayout))
}

func (s *Store) ListUpcoming(ctx context.Context, userID string, role model.Role, from time.Time) ([]model.Appointment, error) {
	column := "provider_id"
	switch role {
	case model.RoleProvider:
	case model.RoleRequester:
		column = "requester_id"
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
	q := `SELECT ` + appointmentColumns + ` FROM appointments
	      WHERE ` + column + `=$1 AND appointment_date >= $2 AND status IN ('PENDING','CONFIRMED')
	      ORDER BY appointment_date, appointment_time`
	return s.listAppointments(ctx, q, userID, from.Format(model.DateLayout))
}

func (s *Store) listAppointments(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func sourceArg(ms *model.MeetingSource) *string {
	if ms == nil {
		return nil
	}
	s := string(*ms)
	return &s
}
