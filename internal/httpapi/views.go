package httpapi

import (
	"net/http"
	"time"

	"callintel/internal/appointments"
	"callintel/internal/reporting"

	"github.com/gin-gonic/gin"
)

// appointmentWindow is the default lookback and lookahead for the agenda.
const appointmentWindow = 30 * 24 * time.Hour

func (h Handlers) DrainNotices(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	notices, err := h.Notices.Drain(c.Request.Context(), id.UserID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}

// ListAppointments buckets the caller's agenda by local day in ?tz=.
func (h Handlers) ListAppointments(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	loc, err := appointments.LoadLocation(c.Query("tz"))
	if err != nil {
		abortErr(c, err)
		return
	}
	now := h.now()
	from, err := parseTime(c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
		return
	}
	if from.IsZero() {
		from = now.Add(-appointmentWindow)
	}
	if to.IsZero() {
		to = now.Add(appointmentWindow)
	}
	if !to.After(from) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be after from"})
		return
	}

	appts, err := h.Appointments.ListByUser(c.Request.Context(), id.UserID, from, to)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"time_zone": loc.String(),
		"buckets":   appointments.Bucket(appts, loc, now),
	})
}

type createAppointmentRequest struct {
	CustomerName string     `json:"customer_name"`
	Title        string     `json:"title"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Location     string     `json:"location"`
	Notes        string     `json:"notes"`
}

func (h Handlers) CreateAppointment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	appt, err := h.Appointments.Create(c.Request.Context(), appointments.Appointment{
		OrganizationID: id.OrganizationID,
		UserID:         id.UserID,
		CustomerName:   req.CustomerName,
		Title:          req.Title,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Location:       req.Location,
		Notes:          req.Notes,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// RecordingsReport aggregates the caller's organization over [from, to).
// RBAC: region_manager, org_admin or super_admin.
func (h Handlers) RecordingsReport(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	from, err := parseTime(c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
		return
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
		return
	}
	out, err := h.Reports.RecordingsSummary(c.Request.Context(), reporting.RecordingsSummaryRequest{
		OrganizationID: id.OrganizationID,
		UserID:         c.Query("user_id"),
		Range:          reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
