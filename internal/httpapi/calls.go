package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"callintel/internal/callcache"
	"callintel/internal/recordings"

	"github.com/gin-gonic/gin"
)

// maxCallUpload bounds a single-blob recording; longer calls use chunks.
const maxCallUpload = 200 << 20

func (h Handlers) ListCalls(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	calls, err := h.Calls.For(id.UserID).LoadCalls(c.Request.Context(), limit)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

// AddCall accepts a finished recording as multipart form data and answers with
// the placeholder entry. Persistence and transcription continue in background.
func (h Handlers) AddCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallUpload)

	fh, err := c.FormFile("audio")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "audio file required"})
		return
	}
	startedAt, err := parseTime(c.PostForm("started_at"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "started_at must be RFC 3339"})
		return
	}
	endedAt, err := parseTime(c.PostForm("ended_at"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ended_at must be RFC 3339"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable audio"})
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable audio"})
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/webm"
	}
	placeholder, err := h.Calls.For(id.UserID).AddCall(c.Request.Context(), callcache.NewCall{
		OrganizationID: id.OrganizationID,
		OwnerName:      id.Name,
		CustomerName:   c.PostForm("customer_name"),
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		Audio:          audio,
		ContentType:    contentType,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, placeholder)
}

type updateCallRequest struct {
	CustomerName    *string    `json:"customer_name"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int       `json:"duration"`
}

func (h Handlers) UpdateCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req updateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.DurationSeconds != nil && *req.DurationSeconds < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "duration must not be negative"})
		return
	}
	p := recordings.Patch{
		CustomerName:    req.CustomerName,
		EndedAt:         req.EndedAt,
		DurationSeconds: req.DurationSeconds,
	}
	if p.Empty() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	rec, err := h.Calls.For(id.UserID).UpdateCall(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type speakerMappingRequest struct {
	Mapping map[string]string `json:"mapping"`
}

func (h Handlers) UpdateSpeakers(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req speakerMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rec, err := h.Calls.For(id.UserID).UpdateSpeakerMapping(c.Request.Context(), c.Param("id"), req.Mapping)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// AudioURL returns a short-lived signed URL for the stored single-blob audio.
func (h Handlers) AudioURL(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if h.Signer == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "signing not configured"})
		return
	}
	rec, ok := h.loadRecording(c, id, c.Param("id"))
	if !ok {
		return
	}
	if rec.AudioPath == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no stored audio"})
		return
	}
	ttl := h.SignedURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	url, err := h.Signer.SignedURL(rec.AudioPath, ttl)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": h.now().Add(ttl).UTC()})
}
