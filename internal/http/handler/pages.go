package handler

import (
	"encoding/gob"
	"fmt"
	"net/http"
	"strings"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"github.com/edirooss/streamrec/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string // "success" | "danger"
	Message  string
}

func init() { gob.Register(Flash{}) }

// PagesHandler serves the server-rendered UI. Form posts answer with a
// redirect and leave their outcome as a flash message in the session.
//
//   - GET  /                  → status page
//   - GET  /recordings        → recordings page
//   - GET  /settings          → settings page
//   - POST /settings          → save auto-processing
//   - POST /submit            → start one (username) or many (usernames)
//   - POST /remove            → stop (username)
//   - POST /recording_action  → process or delete (user, path, action)
type PagesHandler struct {
	log *zap.Logger
	rec Recorder
}

func NewPagesHandler(log *zap.Logger, rec Recorder) *PagesHandler {
	return &PagesHandler{
		log: log.Named("pages"),
		rec: rec,
	}
}

func (h *PagesHandler) Status(c *gin.Context) {
	h.render(c, "status.html", gin.H{
		"Title":      "Status",
		"Active":     h.rec.ActiveChannels(),
		"Recordings": h.recordings(c),
	})
}

func (h *PagesHandler) Recordings(c *gin.Context) {
	h.render(c, "recordings.html", gin.H{
		"Title":      "Recordings",
		"Recordings": h.recordings(c),
	})
}

func (h *PagesHandler) Settings(c *gin.Context) {
	on, err := h.rec.AutoProcess(c.Request.Context())
	if err != nil {
		c.Error(err)
		addFlash(c, "danger", err.Error())
	}
	h.render(c, "settings.html", gin.H{
		"Title":       "Settings",
		"AutoProcess": on,
		"Loop":        h.rec.LoopStats(),
	})
}

// SaveSettings handles POST /settings. An absent checkbox means off.
func (h *PagesHandler) SaveSettings(c *gin.Context) {
	_, on := c.GetPostForm("auto_process_recordings")
	if err := h.rec.SetAutoProcess(c.Request.Context(), on); err != nil {
		c.Error(err)
		addFlash(c, "danger", err.Error())
	} else {
		addFlash(c, "success", "Settings saved")
	}
	h.redirect(c, "/settings")
}

// Submit handles POST /submit.
func (h *PagesHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	username, single := c.GetPostForm("username")
	usernames, many := c.GetPostForm("usernames")

	switch {
	case single:
		if err := h.rec.Start(ctx, username); err != nil {
			c.Error(err)
			addFlash(c, "danger", err.Error())
		} else {
			addFlash(c, "success", fmt.Sprintf("Started recording %s's Twitch stream", strings.TrimSpace(username)))
		}
	case many:
		if err := h.rec.StartMany(ctx, strings.Split(usernames, ",")); err != nil {
			c.Error(err)
			addFlash(c, "danger", err.Error())
		} else {
			addFlash(c, "success", "Started recording "+usernames)
		}
	default:
		addFlash(c, "danger", "missing username or usernames")
	}
	h.redirect(c, "/")
}

// Remove handles POST /remove.
func (h *PagesHandler) Remove(c *gin.Context) {
	username, ok := c.GetPostForm("username")
	if !ok {
		c.String(http.StatusBadRequest, "missing username")
		return
	}

	ctx := c.Request.Context()
	if err := h.rec.Stop(ctx, username); err != nil {
		c.Error(err)
		addFlash(c, "danger", err.Error())
		h.redirect(c, "/")
		return
	}

	msg := fmt.Sprintf("Stopped recording %s's Twitch stream", strings.TrimSpace(username))
	if on, err := h.rec.AutoProcess(ctx); err == nil && on {
		msg += ", processing video in background..."
	}
	addFlash(c, "success", msg)
	h.redirect(c, "/")
}

// RecordingAction handles POST /recording_action.
func (h *PagesHandler) RecordingAction(c *gin.Context) {
	action := c.PostForm("action")
	if action != "process" && action != "delete" {
		c.String(http.StatusBadRequest, "invalid action")
		return
	}
	user, okUser := c.GetPostForm("user")
	path, okPath := c.GetPostForm("path")
	if !okUser || !okPath {
		c.String(http.StatusBadRequest, "missing path or user")
		return
	}

	ctx := c.Request.Context()
	var err error
	verb := "Processed"
	if action == "process" {
		err = h.rec.Process(ctx, user, path)
	} else {
		err = h.rec.Delete(ctx, user, path)
		verb = "Deleted"
	}
	if err != nil {
		c.Error(err)
		addFlash(c, "danger", err.Error())
	} else {
		addFlash(c, "success", fmt.Sprintf("%s video: %s/%s", verb, user, path))
	}
	h.redirect(c, "/recordings")
}

func (h *PagesHandler) recordings(c *gin.Context) map[string][]recording.Recording {
	recs, err := h.rec.ListRecordings(c.Request.Context())
	if err != nil {
		c.Error(err)
		h.log.Warn("failed to list recordings", zap.Error(err))
		return nil
	}
	return recs
}

// render drains the pending flashes into data and renders page.
func (h *PagesHandler) render(c *gin.Context, page string, data gin.H) {
	data["Flashes"] = takeFlashes(c)
	c.HTML(http.StatusOK, page, data)
}

func (h *PagesHandler) redirect(c *gin.Context, to string) {
	if err := sessions.Default(c).Save(); err != nil {
		c.Error(err)
		h.log.Warn("failed to save session", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, to)
}

func addFlash(c *gin.Context, category, msg string) {
	sessions.Default(c).AddFlash(Flash{Category: category, Message: msg})
}

func takeFlashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save()

	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if fl, ok := f.(Flash); ok {
			out = append(out, fl)
		}
	}
	return out
}

var _ Recorder = (*service.Recorder)(nil)
