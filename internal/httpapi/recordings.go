package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"callintel/internal/chunkstore"
	"callintel/internal/objectstore"
	"callintel/internal/recordings"
	"callintel/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxChunkUpload bounds one chunk body.
const maxChunkUpload = 25 << 20

type createRecordingRequest struct {
	// ID lets the recorder name the row before it is online; must be a uuid.
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	StartedAt    time.Time `json:"started_at"`
}

// CreateRecording opens a chunked recording in status transcribing.
func (h Handlers) CreateRecording(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req createRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ID != "" {
		if _, err := uuid.Parse(req.ID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
			return
		}
		// Re-sending the create is fine; claiming someone else's id is not.
		existing, err := h.Recordings.Get(c.Request.Context(), req.ID)
		switch {
		case err == nil && existing.UserID != id.UserID:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "id already in use"})
			return
		case err != nil && !errors.Is(err, recordings.ErrNotFound):
			abortErr(c, err)
			return
		}
	}
	rec, err := h.Recordings.Upsert(c.Request.Context(), recordings.CallRecording{
		ID:             req.ID,
		OrganizationID: id.OrganizationID,
		UserID:         id.UserID,
		OwnerName:      id.Name,
		CustomerName:   req.CustomerName,
		StartedAt:      req.StartedAt.UTC(),
		Status:         recordings.StatusTranscribing,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// PutChunk stores one chunk body in the object store and records its status.
// A failed upload is recorded as failed so the recorder can resend it.
func (h Handlers) PutChunk(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "seq must be a non-negative integer"})
		return
	}
	rec, ok := h.loadRecording(c, id, c.Param("id"))
	if !ok {
		return
	}
	if rec.UserID != id.UserID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only the recorder may upload chunks"})
		return
	}

	ctx := c.Request.Context()
	log := logger.FromGin(c).With("recording_id", rec.ID, "sequence", seq)
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path := objectstore.ChunkPath(rec.ID, seq, objectstore.ExtensionFor(contentType))

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxChunkUpload)
	obj, err := h.Objects.Upload(ctx, path, contentType, body)
	if err != nil {
		log.Warn("chunk upload failed", "err", err)
		if _, perr := h.Chunks.PutChunk(ctx, chunkstore.AudioChunk{
			RecordingID: rec.ID,
			Sequence:    seq,
			Status:      chunkstore.ChunkStatusFailed,
			StoragePath: path,
		}); perr != nil {
			log.Warn("record failed chunk", "err", perr)
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "chunk upload failed"})
		return
	}

	chunk, err := h.Chunks.PutChunk(ctx, chunkstore.AudioChunk{
		RecordingID: rec.ID,
		Sequence:    seq,
		Status:      chunkstore.ChunkStatusUploaded,
		StoragePath: obj.Path,
		SizeBytes:   obj.Size,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, chunk)
}

type completeRecordingRequest struct {
	TotalChunks int `json:"total_chunks"`
}

// CompleteRecording flags the upload complete and starts the pipeline.
// The pipeline outcome is observed through the recording status. A finished
// recording is re-run through RetryRecording, not by completing it again.
func (h Handlers) CompleteRecording(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req completeRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalChunks <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "total_chunks must be positive"})
		return
	}
	rec, ok := h.loadRecording(c, id, c.Param("id"))
	if !ok {
		return
	}
	if rec.UserID != id.UserID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only the recorder may complete the upload"})
		return
	}
	if rec.Status.Terminal() {
		abortErr(c, recordings.ErrInvalidTransition)
		return
	}
	ctx := c.Request.Context()
	if err := h.Chunks.MarkComplete(ctx, rec.ID, req.TotalChunks); err != nil {
		abortErr(c, err)
		return
	}
	if err := h.Pipeline.HandleChunkedRecordingComplete(ctx, rec.ID); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recording_id": rec.ID, "status": "accepted"})
}

// RetryRecording re-runs the pipeline. Anyone who can see the recording may
// ask, so a manager can recover a rep's failed call.
func (h Handlers) RetryRecording(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	rec, ok := h.loadRecording(c, id, c.Param("id"))
	if !ok {
		return
	}
	if err := h.Pipeline.Retry(c.Request.Context(), rec.ID, id.UserID); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recording_id": rec.ID, "status": recordings.StatusTranscribing})
}

// Readiness is a single side-effect-free read of the upload state.
func (h Handlers) Readiness(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	rec, ok := h.loadRecording(c, id, c.Param("id"))
	if !ok {
		return
	}
	r, err := h.Pipeline.Poller().Check(c.Request.Context(), rec.ID)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
