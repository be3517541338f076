package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/calendar/connect?redirect_uri=
// Returns the consent URL that links the caller's Google Calendar.
func (a *App) ConnectCalendarHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	redirectURI := c.DefaultQuery("redirect_uri", a.RedirectURL)
	if redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_uri required"})
		return
	}
	url, err := a.Calendar.Begin(currentUser(c), redirectURI)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// GET /oauth2callback?code=&state=
func (a *App) OAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil || a.States == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + e})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	userID, err := a.States.Verify(c.Query("state"))
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := a.Calendar.Complete(c.Request.Context(), userID, code, a.RedirectURL); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful", "connected": true})
}

// GET /api/calendar/status
func (a *App) CalendarStatusHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	ok, err := a.Calendar.IsConnected(c.Request.Context(), currentUser(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": ok})
}
