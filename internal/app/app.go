// Package app serves the scheduler over HTTP with gin.
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"appointment-scheduler/internal/appointment"
	"appointment-scheduler/internal/calendar"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/oauthstate"
)

type Appointments interface {
	Request(ctx context.Context, in *model.Appointment, initiatorID string) (*model.Appointment, error)
	Get(ctx context.Context, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Appointment, error)
	Upcoming(ctx context.Context, userID string, role model.Role) ([]model.AppointmentSummary, error)
}

type Availability interface {
	BusySlots(ctx context.Context, date time.Time, primaryID, secondaryID string) ([]string, error)
}

type CalendarConnector interface {
	Begin(userID, redirectURI string) (string, error)
	Complete(ctx context.Context, userID, code, redirectURI string) error
	IsConnected(ctx context.Context, userID string) (bool, error)
}

type Inbox interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}

type StateVerifier interface {
	Verify(state string) (string, error)
}

// App holds the collaborators the handlers call. Calendar and States are nil
// when no Google OAuth client is configured.
type App struct {
	Appointments Appointments
	Availability Availability
	Calendar     CalendarConnector
	States       StateVerifier
	Inbox        Inbox
	RedirectURL  string
	Location     *time.Location
	Logger       *log.Logger
}

func (a *App) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

func (a *App) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Register mounts every route on router. The OAuth callback is mounted before
// auth since the browser arrives there without a bearer token.
func (a *App) Register(router *gin.Engine, auth gin.HandlerFunc, connectLimit gin.HandlerFunc) {
	router.GET("/oauth2callback", connectLimit, a.OAuth2CallbackHandler)

	api := router.Group("/api", auth)
	{
		appts := api.Group("/appointments")
		{
			appts.POST("", a.CreateAppointmentHandler)
			appts.GET("/upcoming", a.UpcomingAppointmentsHandler)
			appts.GET("/:id", a.GetAppointmentHandler)
			appts.PATCH("/:id/status", a.UpdateStatusHandler)
		}
		api.GET("/availability/busy-slots", a.BusySlotsHandler)
		api.GET("/notifications", a.NotificationsHandler)

		cal := api.Group("/calendar")
		{
			cal.GET("/connect", connectLimit, a.ConnectCalendarHandler)
			cal.GET("/status", a.CalendarStatusHandler)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appointment.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, appointment.ErrInvalidAppointment),
		errors.Is(err, appointment.ErrInvalidRole),
		errors.Is(err, oauthstate.ErrInvalidState),
		errors.Is(err, calendar.ErrExchangeFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.logf("app: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
