package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"appointment-scheduler/internal/model"
)

const (
	primaryCalendar = "primary"
	eventDuration   = time.Hour
	videoEntryPoint = "video"
	meetSolution    = "hangoutsMeet"
	defaultTimeout  = 10 * time.Second
	defaultSummary  = "Consultation"
)

// Config holds the OAuth client and API settings for Google Calendar.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// APIEndpoint overrides the Calendar REST base URL.
	APIEndpoint string
	Location    *time.Location
	Timeout     time.Duration
	Transport   http.RoundTripper
	Summary     string
}

// Gateway wraps the Google OAuth and Calendar REST surface. It keeps no token
// state: every call takes the token it needs.
type Gateway struct {
	oauth       oauth2.Config
	apiEndpoint string
	loc         *time.Location
	timeout     time.Duration
	transport   http.RoundTripper
	summary     string
}

// EventResult is what CreateEvent hands back.
type EventResult struct {
	EventRef    string
	MeetingLink string
}

func NewGateway(cfg Config) *Gateway {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	summary := cfg.Summary
	if summary == "" {
		summary = defaultSummary
	}

	return &Gateway{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		apiEndpoint: cfg.APIEndpoint,
		loc:         loc,
		timeout:     timeout,
		transport:   transport,
		summary:     summary,
	}
}

func (g *Gateway) config(redirectURI string) *oauth2.Config {
	cfg := g.oauth
	cfg.RedirectURL = redirectURI
	return &cfg
}

// tokenContext routes oauth2 token requests through the bounded client.
func (g *Gateway) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{
		Timeout:   g.timeout,
		Transport: g.transport,
	})
}

// BuildAuthorizationURL returns the consent URL. The provider echoes state back
// to the callback unchanged.
func (g *Gateway) BuildAuthorizationURL(redirectURI, state string) string {
	return g.config(redirectURI).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *Gateway) ExchangeCode(ctx context.Context, code, redirectURI string) (model.TokenPair, error) {
	tok, err := g.config(redirectURI).Exchange(g.tokenContext(ctx), code)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	return tokenPair(tok), nil
}

func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, fmt.Errorf("%w: empty refresh token", ErrRefreshFailed)
	}
	src := g.oauth.TokenSource(g.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return model.TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		return model.TokenPair{}, fmt.Errorf("%w: %w: %w", ErrRefreshFailed, ErrProviderUnavailable, err)
	}
	return tokenPair(tok), nil
}

func tokenPair(tok *oauth2.Token) model.TokenPair {
	return model.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// service builds a Calendar client that sends accessToken as-is. Refresh is
// the caller's job.
func (g *Gateway) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	client := &http.Client{
		Timeout: g.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   g.transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.apiEndpoint))
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create calendar service: %w", ErrProviderUnavailable, err)
	}
	return srv, nil
}

// QueryBusyPeriods asks free/busy for the primary calendar over [start, end).
func (g *Gateway) QueryBusyPeriods(ctx context.Context, accessToken string, start, end time.Time) ([]model.Interval, error) {
	srv, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: primaryCalendar}},
	}
	if tz := zoneName(g.loc); tz != "" {
		req.TimeZone = tz
	}

	resp, err := srv.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, classify("freebusy query", err)
	}

	cal, ok := resp.Calendars[primaryCalendar]
	if !ok {
		return []model.Interval{}, nil
	}

	out := make([]model.Interval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		if p == nil {
			continue
		}
		s, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy start %q: %w", ErrProviderUnavailable, p.Start, err)
		}
		e, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy end %q: %w", ErrProviderUnavailable, p.End, err)
		}
		out = append(out, model.Interval{Start: s, End: e})
	}
	return out, nil
}

// CreateEvent books a one-hour event for the appointment on the token owner's
// primary calendar, asks for a Meet conference and invites attendeeEmail.
func (g *Gateway) CreateEvent(ctx context.Context, accessToken string, appt *model.Appointment, attendeeEmail string) (EventResult, error) {
	start, err := appt.StartsAt(g.loc)
	if err != nil {
		return EventResult{}, err
	}
	srv, err := g.service(ctx, accessToken)
	if err != nil {
		return EventResult{}, err
	}

	tz := zoneName(g.loc)
	ev := &gcal.Event{
		Summary:     g.summary,
		Description: appt.Notes,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: start.Add(eventDuration).Format(time.RFC3339), TimeZone: tz},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             appt.ID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: meetSolution},
			},
		},
	}
	if attendeeEmail != "" {
		ev.Attendees = []*gcal.EventAttendee{{Email: attendeeEmail}}
	}

	created, err := srv.Events.Insert(primaryCalendar, ev).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return EventResult{}, classify("event insert", err)
	}

	link := meetingLink(created)
	if link == "" {
		return EventResult{}, fmt.Errorf("%w: event %s has no conference link", ErrProviderUnavailable, created.Id)
	}
	return EventResult{EventRef: created.Id, MeetingLink: link}, nil
}

// meetingLink prefers the legacy hangoutLink field, then the first video entry
// point of the conference data.
func meetingLink(ev *gcal.Event) string {
	if ev == nil {
		return ""
	}
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep != nil && ep.EntryPointType == videoEntryPoint && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}

// zoneName returns an IANA name for loc, or "" when Go only knows it as Local.
func zoneName(loc *time.Location) string {
	if loc == nil || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}
