package availability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appointment-scheduler/internal/calendar"
	"appointment-scheduler/internal/model"
)

var day = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

type fakeAppointments struct {
	byUser map[string][]model.Appointment
	err    error
}

func (f *fakeAppointments) ListForUserOnDate(_ context.Context, userID string, date time.Time) ([]model.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Appointment
	for _, a := range f.byUser[userID] {
		if a.Date.Format(model.DateLayout) == date.Format(model.DateLayout) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCredentials struct {
	mu         sync.Mutex
	creds      map[string]*model.OAuthCredential
	freshErr   error
	refreshErr error
	refreshes  int
}

func (f *fakeCredentials) Get(_ context.Context, userID, _ string) (*model.OAuthCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds[userID], nil
}

func (f *fakeCredentials) EnsureFresh(_ context.Context, c *model.OAuthCredential) (*model.OAuthCredential, error) {
	if f.freshErr != nil {
		return nil, f.freshErr
	}
	return c, nil
}

func (f *fakeCredentials) ForceRefresh(_ context.Context, c *model.OAuthCredential) (*model.OAuthCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	next := *c
	next.AccessToken = c.AccessToken + "-refreshed"
	f.creds[c.UserID] = &next
	return &next, nil
}

type fakeBusy struct {
	mu       sync.Mutex
	byToken  map[string][]model.Interval
	errs     map[string]error
	calls    []string
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeBusy) QueryBusyPeriods(_ context.Context, token string, start, end time.Time) ([]model.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token)
	f.lastFrom, f.lastTo = start, end
	if err, ok := f.errs[token]; ok {
		return nil, err
	}
	return f.byToken[token], nil
}

func at(hh, mm int) time.Time {
	return time.Date(2026, 3, 9, hh, mm, 0, 0, time.UTC)
}

func appt(id, provider, requester, clock string, status model.Status) model.Appointment {
	return model.Appointment{ID: id, ProviderID: provider, RequesterID: requester, Date: day, Time: clock, Status: status}
}

func quietLogger() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func cred(userID, token string) *model.OAuthCredential {
	return &model.OAuthCredential{UserID: userID, Provider: model.ProviderGoogle, AccessToken: token, RefreshToken: "r"}
}

func TestBusySlotsScenario(t *testing.T) {
	appts := &fakeAppointments{byUser: map[string][]model.Appointment{
		"lawyer": {appt("a1", "lawyer", "client", "10:00", model.StatusConfirmed)},
	}}
	creds := &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}}
	busy := &fakeBusy{byToken: map[string][]model.Interval{"tok": {{Start: at(14, 10), End: at(14, 40)}}}}

	agg := NewAggregator(appts, creds, busy, time.UTC, quietLogger())
	got, err := agg.BusySlots(context.Background(), day, "lawyer", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "14:00", "14:30"}, got)

	assert.Equal(t, day, busy.lastFrom)
	assert.Equal(t, day.Add(24*time.Hour), busy.lastTo)
}

func TestBusySlotsIgnoresPendingAndRejected(t *testing.T) {
	appts := &fakeAppointments{byUser: map[string][]model.Appointment{
		"lawyer": {
			appt("a1", "lawyer", "client", "09:00", model.StatusPending),
			appt("a2", "lawyer", "client", "11:00", model.StatusRejected),
			appt("a3", "lawyer", "client", "15:05", model.StatusConfirmed),
		},
	}}
	agg := NewAggregator(appts, &fakeCredentials{creds: map[string]*model.OAuthCredential{}}, &fakeBusy{}, time.UTC, quietLogger())

	got, err := agg.BusySlots(context.Background(), day, "lawyer", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"15:05"}, got)
}

func TestBusySlotsWithoutAnything(t *testing.T) {
	agg := NewAggregator(&fakeAppointments{}, &fakeCredentials{creds: map[string]*model.OAuthCredential{}}, &fakeBusy{}, time.UTC, quietLogger())

	got, err := agg.BusySlots(context.Background(), day, "lawyer", "client")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBusySlotsMergesBothParties(t *testing.T) {
	appts := &fakeAppointments{byUser: map[string][]model.Appointment{
		"lawyer": {appt("a1", "lawyer", "other", "10:00", model.StatusConfirmed)},
		"client": {
			appt("a2", "someone", "client", "10:00", model.StatusConfirmed),
			appt("a3", "someone", "client", "16:00", model.StatusConfirmed),
		},
	}}
	creds := &fakeCredentials{creds: map[string]*model.OAuthCredential{
		"lawyer": cred("lawyer", "lawyer-tok"),
		"client": cred("client", "client-tok"),
	}}
	busy := &fakeBusy{byToken: map[string][]model.Interval{
		"lawyer-tok": {{Start: at(8, 0), End: at(9, 0)}},
		"client-tok": {{Start: at(8, 30), End: at(9, 15)}},
	}}

	agg := NewAggregator(appts, creds, busy, time.UTC, quietLogger())
	got, err := agg.BusySlots(context.Background(), day, "lawyer", "client")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "10:00", "16:00"}, got)
	assert.ElementsMatch(t, []string{"lawyer-tok", "client-tok"}, busy.calls)
}

func TestBusySlotsRetriesOnceAfterAuthExpired(t *testing.T) {
	creds := &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "stale")}}
	busy := &fakeBusy{
		errs:    map[string]error{"stale": fmt.Errorf("freebusy: %w", calendar.ErrAuthExpired)},
		byToken: map[string][]model.Interval{"stale-refreshed": {{Start: at(13, 0), End: at(13, 30)}}},
	}

	agg := NewAggregator(&fakeAppointments{}, creds, busy, time.UTC, quietLogger())
	got, err := agg.BusySlots(context.Background(), day, "lawyer", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"13:00"}, got)
	assert.Equal(t, 1, creds.refreshes)
	assert.Equal(t, []string{"stale", "stale-refreshed"}, busy.calls)
}

func TestBusySlotsDegradesToInternalData(t *testing.T) {
	internal := &fakeAppointments{byUser: map[string][]model.Appointment{
		"lawyer": {appt("a1", "lawyer", "client", "10:00", model.StatusConfirmed)},
	}}

	tests := []struct {
		name      string
		creds     *fakeCredentials
		busy      *fakeBusy
		wantCalls int
	}{
		{
			name:      "provider unavailable",
			creds:     &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}},
			busy:      &fakeBusy{errs: map[string]error{"tok": calendar.ErrProviderUnavailable}},
			wantCalls: 1,
		},
		{
			name:  "auth expired twice",
			creds: &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}},
			busy: &fakeBusy{errs: map[string]error{
				"tok":           calendar.ErrAuthExpired,
				"tok-refreshed": calendar.ErrAuthExpired,
			}},
			wantCalls: 2,
		},
		{
			name:      "refresh rejected",
			creds:     &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}, refreshErr: calendar.ErrRefreshFailed},
			busy:      &fakeBusy{errs: map[string]error{"tok": calendar.ErrAuthExpired}},
			wantCalls: 1,
		},
		{
			name:      "stale credential cannot be refreshed",
			creds:     &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}, freshErr: errors.New("no refresh token")},
			busy:      &fakeBusy{},
			wantCalls: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(internal, tt.creds, tt.busy, time.UTC, quietLogger())
			got, err := agg.BusySlots(context.Background(), day, "lawyer", "")
			require.NoError(t, err)
			assert.Equal(t, []string{"10:00"}, got)
			assert.Len(t, tt.busy.calls, tt.wantCalls)
		})
	}
}

func TestBusySlotsFailsOnInternalStoreError(t *testing.T) {
	agg := NewAggregator(&fakeAppointments{err: errors.New("db down")}, &fakeCredentials{creds: map[string]*model.OAuthCredential{}}, &fakeBusy{}, time.UTC, quietLogger())

	_, err := agg.BusySlots(context.Background(), day, "lawyer", "")
	assert.Error(t, err)
}

func TestBusySlotsDeterministic(t *testing.T) {
	intervals := []model.Interval{
		{Start: at(14, 10), End: at(14, 40)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(9, 15), End: at(9, 45)},
	}
	reversed := []model.Interval{intervals[2], intervals[1], intervals[0]}

	run := func(ivs []model.Interval) []string {
		creds := &fakeCredentials{creds: map[string]*model.OAuthCredential{"lawyer": cred("lawyer", "tok")}}
		busy := &fakeBusy{byToken: map[string][]model.Interval{"tok": ivs}}
		got, err := NewAggregator(&fakeAppointments{}, creds, busy, time.UTC, quietLogger()).BusySlots(context.Background(), day, "lawyer", "")
		require.NoError(t, err)
		return got
	}

	first := run(intervals)
	assert.Equal(t, first, run(reversed))
	assert.Equal(t, []string{"09:00", "09:30", "14:00", "14:30"}, first)
}
