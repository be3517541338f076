package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-scheduler/internal/model"
)

// openTestStore connects to DATABASE_URL. Each test uses fresh uuid-based ids
// so runs against a shared database do not interfere.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func newAppointment(provider, requester, date, clock string) *model.Appointment {
	d, _ := time.Parse(model.DateLayout, date)
	return &model.Appointment{
		ID:          uuid.New().String(),
		Date:        d,
		Time:        clock,
		ProviderID:  provider,
		RequesterID: requester,
		Status:      model.StatusPending,
		InitiatedBy: requester,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestAppointmentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	provider, requester := uuid.NewString(), uuid.NewString()

	caseID := "case-42"
	a := newAppointment(provider, requester, "2026-03-09", "10:05")
	a.CaseID = &caseID
	a.Notes = "bring documents"
	require.NoError(t, s.CreateAppointment(ctx, a))

	got, err := s.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", got.DateString())
	assert.Equal(t, "10:05", got.Time)
	assert.Equal(t, model.StatusPending, got.Status)
	require.NotNil(t, got.CaseID)
	assert.Equal(t, caseID, *got.CaseID)
	assert.Equal(t, "bring documents", got.Notes)
	assert.Nil(t, got.MeetingLink)
	assert.Nil(t, got.MeetingSource)
}

func TestGetAppointmentNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetAppointment(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionAppointmentIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := newAppointment(uuid.NewString(), uuid.NewString(), "2026-03-09", "11:00")
	require.NoError(t, s.CreateAppointment(ctx, a))

	link := "https://meet.google.com/abc"
	ref := "evt-1"
	source := model.SourceProviderCalendar
	next := *a
	next.Status = model.StatusConfirmed
	next.MeetingLink = &link
	next.ExternalEventRef = &ref
	next.MeetingSource = &source

	ok, err := s.TransitionAppointment(ctx, &next, model.StatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	rejected := *a
	rejected.Status = model.StatusRejected
	ok, err = s.TransitionAppointment(ctx, &rejected, model.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	require.NotNil(t, got.MeetingLink)
	assert.Equal(t, link, *got.MeetingLink)
	require.NotNil(t, got.MeetingSource)
	assert.Equal(t, source, *got.MeetingSource)
}

func TestListForUserOnDateMatchesEitherParty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user, other := uuid.NewString(), uuid.NewString()

	asProvider := newAppointment(user, other, "2026-03-09", "14:00")
	asRequester := newAppointment(other, user, "2026-03-09", "09:30")
	otherDay := newAppointment(user, other, "2026-03-10", "09:00")
	for _, a := range []*model.Appointment{asProvider, asRequester, otherDay} {
		require.NoError(t, s.CreateAppointment(ctx, a))
	}

	day, _ := time.Parse(model.DateLayout, "2026-03-09")
	got, err := s.ListForUserOnDate(ctx, user, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, asRequester.ID, got[0].ID)
	assert.Equal(t, asProvider.ID, got[1].ID)
}

func TestListUpcomingByRole(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	provider, requester := uuid.NewString(), uuid.NewString()

	past := newAppointment(provider, requester, "2026-03-01", "10:00")
	later := newAppointment(provider, requester, "2026-03-12", "10:00")
	sooner := newAppointment(provider, requester, "2026-03-10", "16:00")
	rejected := newAppointment(provider, requester, "2026-03-11", "10:00")
	for _, a := range []*model.Appointment{past, later, sooner, rejected} {
		require.NoError(t, s.CreateAppointment(ctx, a))
	}
	r := *rejected
	r.Status = model.StatusRejected
	_, err := s.TransitionAppointment(ctx, &r, model.StatusPending)
	require.NoError(t, err)

	from, _ := time.Parse(model.DateLayout, "2026-03-09")
	got, err := s.ListUpcoming(ctx, requester, model.RoleRequester, from)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)

	none, err := s.ListUpcoming(ctx, requester, model.RoleProvider, from)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCredentialUpsertKeepsRefreshToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := uuid.NewString()

	missing, err := s.GetCredential(ctx, user, model.ProviderGoogle)
	require.NoError(t, err)
	assert.Nil(t, missing)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	_, err = s.UpsertCredential(ctx, user, model.ProviderGoogle, model.TokenPair{
		AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: exp,
	})
	require.NoError(t, err)

	c, err := s.UpsertCredential(ctx, user, model.ProviderGoogle, model.TokenPair{
		AccessToken: "at-2", ExpiresAt: exp.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "rt-1", c.RefreshToken)

	got, err := s.GetCredential(ctx, user, model.ProviderGoogle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "at-2", got.AccessToken)
	assert.Equal(t, "rt-1", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(exp.Add(time.Hour)))
}

func TestEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	_, err := s.DB.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, "client@example.com")
	require.NoError(t, err)

	email, err := s.Email(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", email)

	_, err = s.Email(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifications(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := uuid.NewString()

	n := &model.Notification{
		UserID: user, Kind: model.KindAppointmentRequested,
		Title: "New appointment request", Message: "hello", ReferenceID: "a1",
	}
	require.NoError(t, s.InsertNotification(ctx, n))
	assert.NotEmpty(t, n.ID)

	got, err := s.ListNotifications(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.KindAppointmentRequested, got[0].Kind)
	assert.Equal(t, "a1", got[0].ReferenceID)
}
