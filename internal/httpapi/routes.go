package httpapi

import (
	"callintel/internal/audit"
	"callintel/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the authenticated API on v1. The caller installs the bearer
// middleware on the group.
func (h Handlers) Register(v1 *gin.RouterGroup) {
	v1.Use(rbac.RequireOrganization(), clientIP())

	calls := v1.Group("/calls")
	calls.Use(rbac.RequireRecorder())
	{
		calls.GET("", h.ListCalls)
		calls.POST("", h.AddCall)
		calls.PATCH("/:id", h.UpdateCall)
		calls.PUT("/:id/speakers", h.UpdateSpeakers)
		calls.GET("/:id/audio-url", h.AudioURL)
	}

	recs := v1.Group("/recordings")
	recs.Use(rbac.RequireRecorder())
	{
		recs.POST("", h.CreateRecording)
		recs.PUT("/:id/chunks/:seq", h.PutChunk)
		recs.POST("/:id/complete", h.CompleteRecording)
		recs.POST("/:id/retry", h.RetryRecording)
		recs.GET("/:id/readiness", h.Readiness)
	}

	v1.GET("/notices", h.DrainNotices)

	appts := v1.Group("/appointments")
	{
		appts.GET("", h.ListAppointments)
		appts.POST("", h.CreateAppointment)
	}

	reports := v1.Group("/reports")
	reports.Use(rbac.RequireAnyRole(rbac.RoleRegionManager, rbac.RoleOrgAdmin))
	{
		reports.GET("/recordings", h.RecordingsReport)
	}
}

// clientIP exposes the resolved caller IP to audit writes.
func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
