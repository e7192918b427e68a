package handler

import (
	"net/http"

	mw "github.com/edirooss/streamrec/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecordingsHandler serves recording files.
//
//   - GET    /api/recordings                          → all recordings by channel
//   - POST   /api/recordings/{channel}/{file}/process → remux now
//   - DELETE /api/recordings/{channel}/{file}         → delete raw and processed copies
type RecordingsHandler struct {
	log *zap.Logger
	rec Recorder
}

func NewRecordingsHandler(log *zap.Logger, rec Recorder) *RecordingsHandler {
	return &RecordingsHandler{
		log: log.Named("recordings"),
		rec: rec,
	}
}

// ListRecordings handles GET /api/recordings.
func (h *RecordingsHandler) ListRecordings(c *gin.Context) {
	recs, err := h.rec.ListRecordings(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list recordings"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

// ProcessRecording handles POST /api/recordings/{channel}/{file}/process.
//
// A transcode failure still answers 204: the raw file is kept and the
// failure is in the server log.
//
// Status Codes:
//   - 204 No Content
//   - 400 Bad Request → invalid file name
//   - 404 Not Found → no such raw recording
//   - 409 Conflict → file is still being captured
func (h *RecordingsHandler) ProcessRecording(c *gin.Context) {
	if err := h.rec.Process(c.Request.Context(), mw.GetChannel(c), c.Param("file")); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRecording handles DELETE /api/recordings/{channel}/{file}.
// Deleting a missing recording succeeds.
func (h *RecordingsHandler) DeleteRecording(c *gin.Context) {
	if err := h.rec.Delete(c.Request.Context(), mw.GetChannel(c), c.Param("file")); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
