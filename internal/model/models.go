package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// Role is the part a user plays in an appointment.
type Role string

const (
	RoleProvider  Role = "provider"
	RoleRequester Role = "requester"
)

// MeetingSource records which strategy issued an appointment's meeting link.
type MeetingSource string

const (
	SourceProviderCalendar  MeetingSource = "provider_calendar"
	SourceRequesterCalendar MeetingSource = "requester_calendar"
	SourceLocal             MeetingSource = "local"
)

// ProviderGoogle is the calendar provider key credentials are stored under.
const ProviderGoogle = "google"

const DateLayout = "2006-01-02"

type Appointment struct {
	ID               string         `json:"id"`
	Date             time.Time      `json:"-"`
	Time             string         `json:"time"`
	ProviderID       string         `json:"provider_id"`
	RequesterID      string         `json:"requester_id"`
	CaseID           *string        `json:"case_id,omitempty"`
	Status           Status         `json:"status"`
	Notes            string         `json:"notes,omitempty"`
	MeetingLink      *string        `json:"meeting_link"`
	ExternalEventRef *string        `json:"external_event_ref"`
	MeetingSource    *MeetingSource `json:"meeting_source,omitempty"`
	InitiatedBy      string         `json:"initiated_by"`
	CreatedAt        time.Time      `json:"created_at,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at,omitempty"`
}

// DateString renders the appointment date as YYYY-MM-DD.
func (a *Appointment) DateString() string {
	return a.Date.Format(DateLayout)
}

// StartsAt combines the stored date and time of day in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	tod, err := ParseClock(a.Time)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc), nil
}

// Counterparty returns the other party of the appointment.
func (a *Appointment) Counterparty(userID string) string {
	if userID == a.ProviderID {
		return a.RequesterID
	}
	return a.ProviderID
}

type AppointmentSummary struct {
	ID             string         `json:"id"`
	Date           string         `json:"date"`
	Time           string         `json:"time"`
	Status         Status         `json:"status"`
	CounterpartyID string         `json:"counterparty_id"`
	CaseID         *string        `json:"case_id,omitempty"`
	MeetingLink    *string        `json:"meeting_link,omitempty"`
	MeetingSource  *MeetingSource `json:"meeting_source,omitempty"`
}

// Summarize projects a for the user holding role.
func (a *Appointment) Summarize(role Role) AppointmentSummary {
	counterparty := a.RequesterID
	if role == RoleRequester {
		counterparty = a.ProviderID
	}
	return AppointmentSummary{
		ID:             a.ID,
		Date:           a.DateString(),
		Time:           a.Time,
		Status:         a.Status,
		CounterpartyID: counterparty,
		CaseID:         a.CaseID,
		MeetingLink:    a.MeetingLink,
		MeetingSource:  a.MeetingSource,
	}
}

// TokenPair is what the calendar provider hands back from an exchange or refresh.
// RefreshToken is empty when the provider did not issue a new one.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type OAuthCredential struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key identifies the (user, provider) pair a credential belongs to.
func (c *OAuthCredential) Key() string {
	return CredentialKey(c.UserID, c.Provider)
}

func CredentialKey(userID, provider string) string {
	return fmt.Sprintf("%s/%s", provider, userID)
}

// Interval is a half-open busy period [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

type NotificationKind string

const (
	KindAppointmentRequested NotificationKind = "appointment_requested"
	KindAppointmentConfirmed NotificationKind = "appointment_confirmed"
	KindAppointmentRejected  NotificationKind = "appointment_rejected"
)

type Notification struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	ReferenceID string           `json:"reference_id"`
	CreatedAt   time.Time        `json:"created_at"`
}
