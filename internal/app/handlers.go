package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"appointment-scheduler/internal/appointment"
	"appointment-scheduler/internal/model"
)

// POST /api/appointments
// The caller is recorded as the initiator and must be one of the parties.
func (a *App) CreateAppointmentHandler(c *gin.Context) {
	var req createAppointmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := model.ParseDate(req.Date, a.location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := a.Appointments.Request(c.Request.Context(), &model.Appointment{
		Date:        date,
		Time:        req.Time,
		ProviderID:  req.ProviderID,
		RequesterID: req.RequesterID,
		CaseID:      req.CaseID,
		Notes:       req.Notes,
	}, currentUser(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAppointmentResponse(appt))
}

// GET /api/appointments/:id
func (a *App) GetAppointmentHandler(c *gin.Context) {
	appt, ok := a.loadOwn(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

// PATCH /api/appointments/:id/status
func (a *App) UpdateStatusHandler(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := a.loadOwn(c); !ok {
		return
	}
	appt, err := a.Appointments.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

// loadOwn fetches the :id appointment and answers 404 unless the caller is a
// party to it.
func (a *App) loadOwn(c *gin.Context) (*model.Appointment, bool) {
	appt, err := a.Appointments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	uid := currentUser(c)
	if uid != appt.ProviderID && uid != appt.RequesterID {
		c.JSON(http.StatusNotFound, gin.H{"error": appointment.ErrNotFound.Error()})
		return nil, false
	}
	return appt, true
}

// GET /api/appointments/upcoming?role=provider|requester
func (a *App) UpcomingAppointmentsHandler(c *gin.Context) {
	role := model.Role(c.DefaultQuery("role", string(model.RoleRequester)))
	out, err := a.Appointments.Upcoming(c.Request.Context(), currentUser(c), role)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out, "count": len(out)})
}

// GET /api/availability/busy-slots?provider_id=&requester_id=&date=YYYY-MM-DD
func (a *App) BusySlotsHandler(c *gin.Context) {
	providerID := c.Query("provider_id")
	dateStr := c.Query("date")
	if providerID == "" || dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider_id and date required"})
		return
	}
	date, err := model.ParseDate(dateStr, a.location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slots, err := a.Availability.BusySlots(c.Request.Context(), date, providerID, c.Query("requester_id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateStr, "busy_slots": slots})
}

// GET /api/notifications?limit=
func (a *App) NotificationsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
		return
	}
	out, err := a.Inbox.ListNotifications(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	if out == nil {
		out = []model.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "count": len(out)})
}
