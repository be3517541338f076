// Package meeting attaches a video-meeting link to a confirmed appointment.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"appointment-scheduler/internal/calendar"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/retry"
)

// DefaultFallbackBaseURL hosts locally synthesized meeting rooms.
const DefaultFallbackBaseURL = "https://meet.jit.si"

// fallbackNamespace scopes fallback room ids so they never collide with other
// UUIDv5 users of the appointment id.
var fallbackNamespace = uuid.MustParse("6f1c2a8e-3d4b-5c6d-9e7f-8a9b0c1d2e3f")

var errNoCredential = errors.New("no calendar connected")

type CredentialSource interface {
	Get(ctx context.Context, userID, provider string) (*model.OAuthCredential, error)
	EnsureFresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error)
	ForceRefresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error)
}

type EventCreator interface {
	CreateEvent(ctx context.Context, accessToken string, appt *model.Appointment, attendeeEmail string) (calendar.EventResult, error)
}

// Directory resolves the email address a calendar invitation is sent to.
type Directory interface {
	Email(ctx context.Context, userID string) (string, error)
}

// Link is a resolved meeting link. EventRef is empty and IssuedBy is empty for
// the local fallback.
type Link struct {
	URL      string
	EventRef string
	Source   model.MeetingSource
	IssuedBy string
}

type strategy struct {
	source model.MeetingSource
	run    func(ctx context.Context, appt *model.Appointment) (Link, error)
}

// Resolver tries the provider's calendar, then the requester's, then a local
// room. The local room cannot fail, so Resolve always returns a link.
type Resolver struct {
	credentials     CredentialSource
	events          EventCreator
	directory       Directory
	provider        string
	fallbackBaseURL string
	logger          *log.Logger
	strategies      []strategy
}

type Option func(*Resolver)

func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithFallbackBaseURL(base string) Option {
	return func(r *Resolver) { r.fallbackBaseURL = strings.TrimRight(base, "/") }
}

func NewResolver(credentials CredentialSource, events EventCreator, directory Directory, opts ...Option) *Resolver {
	r := &Resolver{
		credentials:     credentials,
		events:          events,
		directory:       directory,
		provider:        model.ProviderGoogle,
		fallbackBaseURL: DefaultFallbackBaseURL,
		logger:          log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = []strategy{
		{
			source: model.SourceProviderCalendar,
			run: func(ctx context.Context, a *model.Appointment) (Link, error) {
				return r.viaCalendar(ctx, a, a.ProviderID, a.RequesterID, model.SourceProviderCalendar)
			},
		},
		{
			source: model.SourceRequesterCalendar,
			run: func(ctx context.Context, a *model.Appointment) (Link, error) {
				return r.viaCalendar(ctx, a, a.RequesterID, a.ProviderID, model.SourceRequesterCalendar)
			},
		},
		{
			source: model.SourceLocal,
			run: func(_ context.Context, a *model.Appointment) (Link, error) {
				return r.local(a), nil
			},
		},
	}
	return r
}

// Resolve returns the first link a strategy produces. Strategy errors are
// logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, appt *model.Appointment) Link {
	for _, s := range r.strategies {
		link, err := s.run(ctx, appt)
		if err == nil && link.URL != "" {
			return link
		}
		if err != nil && !errors.Is(err, errNoCredential) {
			r.logger.Printf("meeting: %s strategy failed for appointment %s: %v", s.source, appt.ID, err)
		}
	}
	return r.local(appt)
}

func (r *Resolver) viaCalendar(ctx context.Context, appt *model.Appointment, ownerID, attendeeID string, source model.MeetingSource) (Link, error) {
	cred, err := r.credentials.Get(ctx, ownerID, r.provider)
	if err != nil {
		return Link{}, err
	}
	if cred == nil {
		return Link{}, errNoCredential
	}
	attendee, err := r.directory.Email(ctx, attendeeID)
	if err != nil {
		return Link{}, fmt.Errorf("attendee email for %s: %w", attendeeID, err)
	}
	cred, err = r.credentials.EnsureFresh(ctx, cred)
	if err != nil {
		return Link{}, err
	}

	res, err := retry.WithRecovery(ctx,
		func(ctx context.Context) (calendar.EventResult, error) {
			return r.events.CreateEvent(ctx, cred.AccessToken, appt, attendee)
		},
		calendar.IsAuthExpired,
		func(ctx context.Context) error {
			refreshed, err := r.credentials.ForceRefresh(ctx, cred)
			if err != nil {
				return err
			}
			cred = refreshed
			return nil
		},
	)
	if err != nil {
		return Link{}, err
	}
	return Link{URL: res.MeetingLink, EventRef: res.EventRef, Source: source, IssuedBy: ownerID}, nil
}

// local derives a stable room from the appointment id: the same appointment
// always gets the same room and distinct appointments never share one.
func (r *Resolver) local(appt *model.Appointment) Link {
	room := uuid.NewSHA1(fallbackNamespace, []byte(appt.ID))
	return Link{
		URL:    fmt.Sprintf("%s/consult-%s", r.fallbackBaseURL, room),
		Source: model.SourceLocal,
	}
}
