package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/edirooss/streamrec/internal/domain/setting"
	"github.com/edirooss/streamrec/internal/repo"
	"github.com/edirooss/streamrec/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// SettingsHandler serves user settings and the reconciliation loop state.
//
//   - GET   /api/settings              → all settings
//   - PATCH /api/settings              → JSON merge patch (RFC 7396)
//   - PUT   /api/settings/auto-process → toggle auto-processing
//   - GET   /api/reconcile             → loop state
type SettingsHandler struct {
	log      *zap.Logger
	rec      Recorder
	settings repo.SettingsStore
}

func NewSettingsHandler(log *zap.Logger, rec Recorder, settings repo.SettingsStore) *SettingsHandler {
	return &SettingsHandler{
		log:      log.Named("settings"),
		rec:      rec,
		settings: settings,
	}
}

// GetSettings handles GET /api/settings.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to access settings"})
		return
	}
	c.JSON(http.StatusOK, all)
}

// PatchSettings handles PATCH /api/settings.
//
// Behavior:
//   - Requires Content-Type application/merge-patch+json.
//   - Only known settings with values of the right type may remain after
//     the patch; null removes a setting.
//   - The reconciliation loop is converged to the resulting flag.
//
// Status Codes:
//   - 200 OK → JSON of the patched settings
//   - 400 Bad Request → malformed patch, unknown setting or wrong type
//   - 415 Unsupported Media Type
//   - 500 Internal Server Error
func (h *SettingsHandler) PatchSettings(c *gin.Context) {
	mt, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mt != "application/merge-patch+json" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"message": "only application/merge-patch+json is supported for PATCH",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "unable to read request body"})
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed JSON"})
		return
	}

	ctx := c.Request.Context()
	current, err := h.settings.All(ctx)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to access settings"})
		return
	}
	origJSON, err := json.Marshal(current)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to serialize settings"})
		return
	}
	patchedJSON, err := jsonpatch.MergePatch(origJSON, body)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid merge patch"})
		return
	}

	var patched map[string]json.RawMessage
	if err := json.Unmarshal(patchedJSON, &patched); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "settings must be a JSON object"})
		return
	}
	if err := validateSettings(patched); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	for k, v := range patched {
		if old, ok := current[k]; ok && bytes.Equal(old, v) {
			continue
		}
		if err := h.settings.Set(ctx, k, v); err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to access settings"})
			return
		}
	}
	for k := range current {
		if _, ok := patched[k]; ok {
			continue
		}
		if err := h.settings.Delete(ctx, k); err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to access settings"})
			return
		}
	}

	if err := h.rec.SyncAutoProcess(ctx); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, patched)
}

// validateSettings accepts known settings only. Every known setting is a
// boolean today.
func validateSettings(m map[string]json.RawMessage) error {
	for k, v := range m {
		if !setting.Known(k) {
			return fmt.Errorf("unknown setting %q", k)
		}
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return fmt.Errorf("setting %q must be a boolean", k)
		}
	}
	return nil
}

type autoProcessRequest struct {
	Enabled jsonx.Field[bool] `json:"enabled"`
}

// SetAutoProcess handles PUT /api/settings/auto-process.
func (h *SettingsHandler) SetAutoProcess(c *gin.Context) {
	var req autoProcessRequest
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	enabled := req.Enabled.Value()
	if enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "enabled must be true or false"})
		return
	}

	if err := h.rec.SetAutoProcess(c.Request.Context(), *enabled); err != nil {
		c.Error(err)
		c.JSON(statusFor(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *enabled})
}

// GetReconcileStatus handles GET /api/reconcile.
func (h *SettingsHandler) GetReconcileStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.rec.LoopStats())
}
