package httpapi

import (
	"errors"
	"net/http"
	"time"

	"callintel/internal/appointments"
	"callintel/internal/auth"
	"callintel/internal/callcache"
	"callintel/internal/chunkstore"
	"callintel/internal/objectstore"
	"callintel/internal/pipeline"
	"callintel/internal/rbac"
	"callintel/internal/recordings"
	"callintel/internal/reporting"
	"callintel/internal/transcription"
	"callintel/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Recordings recordings.Store
	Chunks     chunkstore.Store
	Objects    objectstore.Store
	// Signer is optional; audio-url answers 501 without it.
	Signer objectstore.Signer

	Calls    *callcache.Registry
	Pipeline *pipeline.Pipeline
	Notices  pipeline.Inbox

	Appointments appointments.Store
	Reports      *reporting.Service

	// SignedURLTTL defaults to 15 minutes.
	SignedURLTTL time.Duration
	Now          func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// identity is set by auth.RequireBearer; rbac.RequireOrganization runs first on
// every /v1 route, so a miss here is a wiring bug.
func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil || id.OrganizationID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return auth.Identity{}, false
	}
	return id, true
}

// canSee reports whether the caller may read rec. Reps see their own calls,
// managers and admins see their organization.
func canSee(id auth.Identity, rec recordings.CallRecording) bool {
	if rbac.IsSuperAdmin(id.Role) {
		return true
	}
	if rec.OrganizationID != id.OrganizationID {
		return false
	}
	if rec.UserID == id.UserID {
		return true
	}
	return id.Role != rbac.RoleSalesRep && id.Role != ""
}

// loadRecording fetches id and enforces visibility. Rows from other tenants
// answer 404 so ids do not leak.
func (h Handlers) loadRecording(c *gin.Context, id auth.Identity, recordingID string) (recordings.CallRecording, bool) {
	rec, err := h.Recordings.Get(c.Request.Context(), recordingID)
	if err != nil {
		abortErr(c, err)
		return recordings.CallRecording{}, false
	}
	if !canSee(id, rec) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "recording not found"})
		return recordings.CallRecording{}, false
	}
	return rec, true
}

func abortErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, recordings.ErrNotFound),
		errors.Is(err, chunkstore.ErrRecordingNotFound),
		errors.Is(err, objectstore.ErrNotFound),
		errors.Is(err, callcache.ErrNotCached):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, recordings.ErrInvalidArgument),
		errors.Is(err, chunkstore.ErrInvalidArgument),
		errors.Is(err, chunkstore.ErrSequenceRange),
		errors.Is(err, appointments.ErrInvalidArgument),
		errors.Is(err, appointments.ErrUnknownTimeZone),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, callcache.ErrNoAudio):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, recordings.ErrInvalidTransition),
		errors.Is(err, chunkstore.ErrAlreadyComplete),
		errors.Is(err, transcription.ErrNoAudioSource),
		errors.Is(err, callcache.ErrNotPersisted),
		pipeline.IsBusy(err):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, objectstore.ErrSigningDisabled):
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseTime accepts RFC 3339; empty yields the zero time.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
