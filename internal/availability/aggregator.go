// Package availability merges confirmed internal bookings with external
// free/busy data into per-day busy markers.
package availability

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"appointment-scheduler/internal/calendar"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/retry"
)

type AppointmentLister interface {
	// ListForUserOnDate returns appointments on date where userID is the
	// provider or the requester, in any status.
	ListForUserOnDate(ctx context.Context, userID string, date time.Time) ([]model.Appointment, error)
}

type CredentialSource interface {
	Get(ctx context.Context, userID, provider string) (*model.OAuthCredential, error)
	EnsureFresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error)
	ForceRefresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error)
}

type BusyQuerier interface {
	QueryBusyPeriods(ctx context.Context, accessToken string, start, end time.Time) ([]model.Interval, error)
}

type Aggregator struct {
	appointments AppointmentLister
	credentials  CredentialSource
	calendar     BusyQuerier
	provider     string
	loc          *time.Location
	logger       *log.Logger
}

type Option func(*Aggregator)

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func WithProvider(provider string) Option {
	return func(a *Aggregator) { a.provider = provider }
}

func NewAggregator(appointments AppointmentLister, credentials CredentialSource, cal BusyQuerier, loc *time.Location, opts ...Option) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	a := &Aggregator{
		appointments: appointments,
		credentials:  credentials,
		calendar:     cal,
		provider:     model.ProviderGoogle,
		loc:          loc,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BusySlots returns the sorted, deduplicated HH:MM busy markers on date for the
// primary user and, when secondaryID is not empty, the secondary user. External
// calendar failures degrade that user to internal bookings only.
func (a *Aggregator) BusySlots(ctx context.Context, date time.Time, primaryID, secondaryID string) ([]string, error) {
	users := []string{primaryID}
	if secondaryID != "" && secondaryID != primaryID {
		users = append(users, secondaryID)
	}

	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, a.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	sets := make([]markerSet, len(users))
	g, gctx := errgroup.WithContext(ctx)
	for i, userID := range users {
		i, userID := i, userID
		g.Go(func() error {
			set, err := a.userMarkers(gctx, userID, dayStart, dayEnd)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := markerSet{}
	for _, s := range sets {
		merged.merge(s)
	}
	return merged.sorted(), nil
}

func (a *Aggregator) userMarkers(ctx context.Context, userID string, dayStart, dayEnd time.Time) (markerSet, error) {
	appts, err := a.appointments.ListForUserOnDate(ctx, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", userID, err)
	}
	set := internalMarkers(appts)

	intervals, err := a.externalBusy(ctx, userID, dayStart, dayEnd)
	if err != nil {
		a.logger.Printf("availability: external busy data skipped for user %s on %s: %v", userID, dayStart.Format(model.DateLayout), err)
		return set, nil
	}
	set.merge(intervalMarkers(intervals, dayStart, dayEnd, a.loc))
	return set, nil
}

// externalBusy returns nil, nil when the user never connected a calendar.
func (a *Aggregator) externalBusy(ctx context.Context, userID string, dayStart, dayEnd time.Time) ([]model.Interval, error) {
	cred, err := a.credentials.Get(ctx, userID, a.provider)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	cred, err = a.credentials.EnsureFresh(ctx, cred)
	if err != nil {
		return nil, err
	}

	return retry.WithRecovery(ctx,
		func(ctx context.Context) ([]model.Interval, error) {
			return a.calendar.QueryBusyPeriods(ctx, cred.AccessToken, dayStart, dayEnd)
		},
		calendar.IsAuthExpired,
		func(ctx context.Context) error {
			refreshed, err := a.credentials.ForceRefresh(ctx, cred)
			if err != nil {
				return err
			}
			cred = refreshed
			return nil
		},
	)
}
