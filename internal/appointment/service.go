// Package appointment owns the appointment record and its state machine.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"appointment-scheduler/internal/meeting"
	"appointment-scheduler/internal/model"
)

var (
	ErrNotFound               = model.ErrNotFound
	ErrInvalidStateTransition = errors.New("invalid appointment state transition")
	ErrInvalidAppointment     = errors.New("invalid appointment")
	ErrInvalidRole            = errors.New("invalid role")
)

type Store interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	// TransitionAppointment persists a's status, link, event ref and source in
	// one write, only if the stored status is still from. It reports whether
	// the row was updated.
	TransitionAppointment(ctx context.Context, a *model.Appointment, from model.Status) (bool, error)
	ListUpcoming(ctx context.Context, userID string, role model.Role, from time.Time) ([]model.Appointment, error)
}

type LinkResolver interface {
	Resolve(ctx context.Context, appt *model.Appointment) meeting.Link
}

type Notifier interface {
	Notify(ctx context.Context, userID string, kind model.NotificationKind, title, message, referenceID string) error
}

type Service struct {
	store    Store
	resolver LinkResolver
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store Store, resolver LinkResolver, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		notifier: notifier,
		loc:      time.Local,
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request records a new PENDING appointment initiated by initiatorID and tells
// the other party about it.
func (s *Service) Request(ctx context.Context, in *model.Appointment, initiatorID string) (*model.Appointment, error) {
	if err := validate(in, initiatorID); err != nil {
		return nil, err
	}
	clock, err := model.NormalizeClock(in.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAppointment, err)
	}
	y, m, d := in.Date.Date()

	a := &model.Appointment{
		ID:          uuid.New().String(),
		Date:        time.Date(y, m, d, 0, 0, 0, 0, s.loc),
		Time:        clock,
		ProviderID:  in.ProviderID,
		RequesterID: in.RequesterID,
		CaseID:      in.CaseID,
		Status:      model.StatusPending,
		Notes:       in.Notes,
		InitiatedBy: initiatorID,
	}
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	title, message := "New appointment request", fmt.Sprintf("A client requested a meeting on %s at %s.", a.DateString(), a.Time)
	if initiatorID == a.ProviderID {
		title, message = "New appointment proposed", fmt.Sprintf("Your lawyer proposed a meeting on %s at %s.", a.DateString(), a.Time)
	}
	s.notify(ctx, a.Counterparty(initiatorID), model.KindAppointmentRequested, title, message, a.ID)
	return a, nil
}

func validate(a *model.Appointment, initiatorID string) error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: missing appointment", ErrInvalidAppointment)
	case a.ProviderID == "" || a.RequesterID == "":
		return fmt.Errorf("%w: provider and requester are required", ErrInvalidAppointment)
	case a.ProviderID == a.RequesterID:
		return fmt.Errorf("%w: provider and requester must differ", ErrInvalidAppointment)
	case a.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidAppointment)
	case initiatorID != a.ProviderID && initiatorID != a.RequesterID:
		return fmt.Errorf("%w: initiator must be a party to the appointment", ErrInvalidAppointment)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load appointment %s: %w", id, err)
	}
	return a, nil
}

// UpdateStatus moves a PENDING appointment to CONFIRMED or REJECTED.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Appointment, error) {
	switch status {
	case model.StatusConfirmed:
		return s.Confirm(ctx, id)
	case model.StatusRejected:
		return s.Reject(ctx, id)
	default:
		return nil, fmt.Errorf("%w: cannot move to %q", ErrInvalidStateTransition, status)
	}
}

// Confirm resolves a meeting link and stores it together with the CONFIRMED
// status.
func (s *Service) Confirm(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := s.pending(ctx, id, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}

	link := s.resolver.Resolve(ctx, a)

	next := *a
	next.Status = model.StatusConfirmed
	next.MeetingLink = &link.URL
	if link.EventRef != "" {
		ref := link.EventRef
		next.ExternalEventRef = &ref
	}
	source := link.Source
	next.MeetingSource = &source

	if err := s.transition(ctx, &next); err != nil {
		return nil, err
	}

	when := fmt.Sprintf("%s at %s", next.DateString(), next.Time)
	s.notify(ctx, next.ProviderID, model.KindAppointmentConfirmed, "Appointment confirmed",
		fmt.Sprintf("Your meeting with your client on %s is confirmed. Join: %s", when, link.URL), next.ID)
	s.notify(ctx, next.RequesterID, model.KindAppointmentConfirmed, "Appointment confirmed",
		fmt.Sprintf("Your appointment on %s has been confirmed. Join: %s", when, link.URL), next.ID)
	return &next, nil
}

func (s *Service) Reject(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := s.pending(ctx, id, model.StatusRejected)
	if err != nil {
		return nil, err
	}

	next := *a
	next.Status = model.StatusRejected
	if err := s.transition(ctx, &next); err != nil {
		return nil, err
	}

	when := fmt.Sprintf("%s at %s", next.DateString(), next.Time)
	s.notify(ctx, next.ProviderID, model.KindAppointmentRejected, "Appointment declined",
		fmt.Sprintf("The appointment on %s was declined.", when), next.ID)
	s.notify(ctx, next.RequesterID, model.KindAppointmentRejected, "Appointment declined",
		fmt.Sprintf("Your appointment request for %s was declined.", when), next.ID)
	return &next, nil
}

func (s *Service) pending(ctx context.Context, id string, to model.Status) (*model.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidStateTransition, id, a.Status, to)
	}
	return a, nil
}

func (s *Service) transition(ctx context.Context, next *model.Appointment) error {
	ok, err := s.store.TransitionAppointment(ctx, next, model.StatusPending)
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", next.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is no longer pending", ErrInvalidStateTransition, next.ID)
	}
	return nil
}

// Upcoming lists today's and later PENDING or CONFIRMED appointments in which
// userID holds role.
func (s *Service) Upcoming(ctx context.Context, userID string, role model.Role) ([]model.AppointmentSummary, error) {
	if role != model.RoleProvider && role != model.RoleRequester {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	appts, err := s.store.ListUpcoming(ctx, userID, role, today)
	if err != nil {
		return nil, fmt.Errorf("list upcoming for %s: %w", userID, err)
	}
	out := make([]model.AppointmentSummary, 0, len(appts))
	for i := range appts {
		if appts[i].Status == model.StatusRejected {
			continue
		}
		out = append(out, appts[i].Summarize(role))
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, userID string, kind model.NotificationKind, title, message, ref string) {
	if err := s.notifier.Notify(ctx, userID, kind, title, message, ref); err != nil {
		s.logger.Printf("appointment: notify %s (%s) for %s failed: %v", userID, kind, ref, err)
	}
}
