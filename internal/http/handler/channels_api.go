package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	mw "github.com/edirooss/streamrec/internal/http/middleware"
	"github.com/edirooss/streamrec/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChannelsHandler serves the channels being captured.
//
//   - GET    /api/channels                → active captures
//   - POST   /api/channels                → start one or more captures
//   - DELETE /api/channels/{channel}      → stop a capture
//   - GET    /api/channels/{channel}/logs → capture tool output
type ChannelsHandler struct {
	log  *zap.Logger
	rec  Recorder
	logs LogReader
}

func NewChannelsHandler(log *zap.Logger, rec Recorder, logs LogReader) *ChannelsHandler {
	return &ChannelsHandler{
		log:  log.Named("channels"),
		rec:  rec,
		logs: logs,
	}
}

// ListChannels handles GET /api/channels.
func (h *ChannelsHandler) ListChannels(c *gin.Context) {
	active := h.rec.ActiveChannels()
	c.Header("X-Total-Count", strconv.Itoa(len(active)))
	c.JSON(http.StatusOK, active)
}

type startRequest struct {
	Channels []string `json:"channels"`
}

// StartChannels handles POST /api/channels.
//
// Every channel is started independently. A partial failure answers with
// the failures' status and message; the channels that did start keep
// recording.
//
// Status Codes:
//   - 201 Created → all channels started
//   - 400 Bad Request → malformed body or no channels
//   - 409 Conflict → a channel is offline or already recording
//   - 500 Internal Server Error
func (h *ChannelsHandler) StartChannels(c *gin.Context) {
	var req startRequest
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if len(req.Channels) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "no channels given"})
		return
	}

	if err := h.rec.StartMany(c.Request.Context(), req.Channels); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Started recording " + strings.Join(req.Channels, ", ")})
}

// StopChannel handles DELETE /api/channels/{channel}.
//
// Status Codes:
//   - 204 No Content → stopped (and processed, with auto-processing on)
//   - 409 Conflict → channel is not being recorded
func (h *ChannelsHandler) StopChannel(c *gin.Context) {
	ch := mw.GetChannel(c)
	if err := h.rec.Stop(c.Request.Context(), ch); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetChannelLogs handles GET /api/channels/{channel}/logs?lines=N.
func (h *ChannelsHandler) GetChannelLogs(c *gin.Context) {
	ch := mw.GetChannel(c)

	lines := 100
	if s := c.Query("lines"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "lines must be a non-negative integer"})
			return
		}
		lines = n
	}

	out, ok := h.logs.Read(ch, lines)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("no capture output for %s", ch)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": ch, "lines": out})
}
