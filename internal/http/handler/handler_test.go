package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edirooss/streamrec/internal/domain/recording"
	mw "github.com/edirooss/streamrec/internal/http/middleware"
	"github.com/edirooss/streamrec/internal/http/web"
	"github.com/edirooss/streamrec/internal/repo"
	"github.com/edirooss/streamrec/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeRecorder records calls and answers with canned errors.
type fakeRecorder struct {
	mu       sync.Mutex
	calls    []string
	errs     map[string]error // op → error
	auto     bool
	active   []service.ActiveCapture
	recs     map[string][]recording.Recording
	synced   int
	settings repo.SettingsStore
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{errs: map[string]error{}, recs: map[string][]recording.Recording{}}
}

func (f *fakeRecorder) record(op string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+"("+strings.Join(args, ",")+")")
	return f.errs[op]
}

func (f *fakeRecorder) Start(_ context.Context, ch string) error { return f.record("start", ch) }
func (f *fakeRecorder) StartMany(_ context.Context, chs []string) error {
	return f.record("start_many", chs...)
}
func (f *fakeRecorder) Stop(_ context.Context, ch string) error { return f.record("stop", ch) }
func (f *fakeRecorder) Process(_ context.Context, ch, file string) error {
	return f.record("process", ch, file)
}
func (f *fakeRecorder) Delete(_ context.Context, ch, file string) error {
	return f.record("delete", ch, file)
}
func (f *fakeRecorder) ListRecordings(context.Context) (map[string][]recording.Recording, error) {
	return f.recs, f.record("list")
}
func (f *fakeRecorder) ActiveChannels() []service.ActiveCapture { return f.active }
func (f *fakeRecorder) AutoProcess(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auto, nil
}
func (f *fakeRecorder) SetAutoProcess(_ context.Context, on bool) error {
	if err := f.record("set_auto", map[bool]string{true: "on", false: "off"}[on]); err != nil {
		return err
	}
	f.mu.Lock()
	f.auto = on
	f.mu.Unlock()
	return nil
}
func (f *fakeRecorder) SyncAutoProcess(ctx context.Context) error {
	on, err := repo.GetBool(ctx, f.settings, "auto_process_recordings")
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.synced++
	f.auto = on
	f.mu.Unlock()
	return nil
}
func (f *fakeRecorder) LoopStats() service.LoopStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return service.LoopStats{Running: f.auto, Starts: 1, Transcodes: 1, MaxTranscodes: 2}
}

func (f *fakeRecorder) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

type fakeLogs map[string][]string

func (l fakeLogs) Read(ch string, n int) ([]string, bool) {
	lines, ok := l[ch]
	if n > 0 && n < len(lines) {
		lines = lines[:n]
	}
	return lines, ok
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeRecorder) {
	t.Helper()
	log := zap.NewNop()
	settings, err := repo.NewFileSettings(log, filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	rec := newFakeRecorder()
	rec.settings = settings

	session, err := mw.Session(mw.SessionOptions{Secret: strings.Repeat("k", 32)})
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(web.Templates())
	r.Use(session)

	ch := NewChannelsHandler(log, rec, fakeLogs{"alice": {"[cli][info] Opening stream", "[cli][info] Found matching plugin"}})
	rh := NewRecordingsHandler(log, rec)
	sh := NewSettingsHandler(log, rec, settings)
	valid := mw.RequireValidChannel()

	api := r.Group("/api")
	api.GET("/channels", ch.ListChannels)
	api.POST("/channels", ch.StartChannels)
	api.DELETE("/channels/:channel", valid, ch.StopChannel)
	api.GET("/channels/:channel/logs", valid, ch.GetChannelLogs)
	api.GET("/recordings", rh.ListRecordings)
	api.POST("/recordings/:channel/:file/process", valid, rh.ProcessRecording)
	api.DELETE("/recordings/:channel/:file", valid, rh.DeleteRecording)
	api.GET("/settings", sh.GetSettings)
	api.PATCH("/settings", sh.PatchSettings)
	api.PUT("/settings/auto-process", sh.SetAutoProcess)
	api.GET("/reconcile", sh.GetReconcileStatus)

	ph := NewPagesHandler(log, rec)
	r.GET("/", ph.Status)
	r.GET("/recordings", ph.Recordings)
	r.GET("/settings", ph.Settings)
	r.POST("/settings", ph.SaveSettings)
	r.POST("/submit", ph.Submit)
	r.POST("/remove", ph.Remove)
	r.POST("/recording_action", ph.RecordingAction)

	return r, rec
}

func do(r http.Handler, method, path, contentType, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func form(r http.Handler, path string, vals url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return do(r, http.MethodPost, path, "application/x-www-form-urlencoded", vals.Encode(), cookies...)
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

// --- JSON API ---------------------------------------------------------------

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.RecordingError{Kind: service.ErrNotStreaming}, http.StatusConflict},
		{&service.RecordingError{Kind: service.ErrAlreadyRecording}, http.StatusConflict},
		{&service.RecordingError{Kind: service.ErrNotWatching}, http.StatusConflict},
		{&service.RecordingError{Kind: service.ErrRecordingInProgress}, http.StatusConflict},
		{&service.RecordingError{Kind: service.ErrInvalidRecording}, http.StatusBadRequest},
		{&service.RecordingError{Kind: service.ErrSourceNotFound}, http.StatusNotFound},
		{&service.RecordingError{Kind: service.ErrSettingsIO}, http.StatusInternalServerError},
		{&service.BatchError{Errs: []error{
			&service.RecordingError{Kind: service.ErrNotStreaming},
			&service.RecordingError{Kind: service.ErrCaptureLaunchFailed},
		}}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestAPI_StartChannels(t *testing.T) {
	r, rec := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/channels", "application/json", `{"channels":["bob","carol"]}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "start_many(bob,carol)", rec.lastCall())

	rec.errs["start_many"] = &service.BatchError{Errs: []error{
		&service.RecordingError{Kind: service.ErrNotStreaming, Channel: "carol"},
	}}
	w = do(r, http.MethodPost, "/api/channels", "application/json", `{"channels":["bob","carol"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "carol is not streaming", message(t, w))

	w = do(r, http.MethodPost, "/api/channels", "application/json", `{"channels":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/channels", "application/json", `{"channel":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")
}

func TestAPI_ListChannels(t *testing.T) {
	r, rec := newTestRouter(t)
	rec.active = []service.ActiveCapture{{Channel: "alice", File: "a.mp4", StartedAt: time.Unix(0, 0).UTC()}}

	w := do(r, http.MethodGet, "/api/channels", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	assert.JSONEq(t, `[{"channel":"alice","file":"a.mp4","started_at":"1970-01-01T00:00:00Z"}]`, w.Body.String())
}

func TestAPI_StopChannel(t *testing.T) {
	r, rec := newTestRouter(t)

	w := do(r, http.MethodDelete, "/api/channels/Alice", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "stop(alice)", rec.lastCall())

	rec.errs["stop"] = &service.RecordingError{Kind: service.ErrNotWatching, Channel: "alice"}
	w = do(r, http.MethodDelete, "/api/channels/alice", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Not watching alice", message(t, w))
}

func TestAPI_ChannelLogs(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/channels/alice/logs?lines=1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"channel":"alice","lines":["[cli][info] Opening stream"]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/channels/bob/logs", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/channels/alice/logs?lines=x", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Recordings(t *testing.T) {
	r, rec := newTestRouter(t)
	rec.recs["alice"] = []recording.Recording{{Channel: "alice", Path: "a.mp4", Processed: true, SizeMB: 1.5}}

	w := do(r, http.MethodGet, "/api/recordings", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"a.mp4"`)
	assert.NotContains(t, w.Body.String(), `"size":`)

	w = do(r, http.MethodPost, "/api/recordings/alice/a.mp4/process", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "process(alice,a.mp4)", rec.lastCall())

	rec.errs["process"] = &service.RecordingError{Kind: service.ErrSourceNotFound, Channel: "alice", File: "b.mp4"}
	w = do(r, http.MethodPost, "/api/recordings/alice/b.mp4/process", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "recording alice/b.mp4 not found", message(t, w))

	w = do(r, http.MethodDelete, "/api/recordings/alice/a.mp4", "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "delete(alice,a.mp4)", rec.lastCall())
}

func TestAPI_PatchSettings(t *testing.T) {
	r, rec := newTestRouter(t)
	const mt = "application/merge-patch+json"

	w := do(r, http.MethodPatch, "/api/settings", "application/json", `{}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = do(r, http.MethodPatch, "/api/settings", mt, `{"auto_process_recordings":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"auto_process_recordings":true}`, w.Body.String())
	assert.True(t, rec.auto)
	assert.Equal(t, 1, rec.synced)

	w = do(r, http.MethodGet, "/api/settings", "", "")
	assert.JSONEq(t, `{"auto_process_recordings":true}`, w.Body.String())

	w = do(r, http.MethodPatch, "/api/settings", mt, `{"auto_process_recordings":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
	assert.False(t, rec.auto)

	w = do(r, http.MethodPatch, "/api/settings", mt, `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `unknown setting "bogus"`, message(t, w))

	w = do(r, http.MethodPatch, "/api/settings", mt, `{"auto_process_recordings":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/api/settings", mt, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_SetAutoProcess(t *testing.T) {
	r, rec := newTestRouter(t)

	w := do(r, http.MethodPut, "/api/settings/auto-process", "application/json", `{"enabled":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "set_auto(on)", rec.lastCall())

	w = do(r, http.MethodGet, "/api/reconcile", "", "")
	assert.JSONEq(t, `{"running":true,"starts":1,"stops":0,"transcodes":1,"max_transcodes":2}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/settings/auto-process", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rec.errs["set_auto"] = &service.RecordingError{Kind: service.ErrSettingsIO}
	w = do(r, http.MethodPut, "/api/settings/auto-process", "application/json", `{"enabled":false}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to access settings", message(t, w))
}

// --- pages ------------------------------------------------------------------

// follow performs a form post and renders the page it redirects to, carrying
// the session cookie along.
func follow(t *testing.T, r http.Handler, path string, vals url.Values) string {
	t.Helper()
	w := form(r, path, vals)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	page := do(r, http.MethodGet, w.Header().Get("Location"), "", "", w.Result().Cookies()...)
	require.Equal(t, http.StatusOK, page.Code)
	return page.Body.String()
}

func TestPages_SubmitSingle(t *testing.T) {
	r, rec := newTestRouter(t)

	body := follow(t, r, "/submit", url.Values{"username": {"alice"}})
	assert.Contains(t, body, "Started recording alice&#39;s Twitch stream")
	assert.Equal(t, "start(alice)", rec.lastCall())

	rec.errs["start"] = &service.RecordingError{Kind: service.ErrNotStreaming, Channel: "alice"}
	body = follow(t, r, "/submit", url.Values{"username": {"alice"}})
	assert.Contains(t, body, `class="flash danger">alice is not streaming`)
}

func TestPages_SubmitMany(t *testing.T) {
	r, rec := newTestRouter(t)

	body := follow(t, r, "/submit", url.Values{"usernames": {"bob,carol"}})
	assert.Contains(t, body, "Started recording bob,carol")
	assert.Equal(t, "start_many(bob,carol)", rec.lastCall())

	body = follow(t, r, "/submit", url.Values{})
	assert.Contains(t, body, "missing username or usernames")
}

func TestPages_Remove(t *testing.T) {
	r, rec := newTestRouter(t)

	w := form(r, "/remove", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := follow(t, r, "/remove", url.Values{"username": {"alice"}})
	assert.Contains(t, body, "Stopped recording alice&#39;s Twitch stream<")

	rec.auto = true
	body = follow(t, r, "/remove", url.Values{"username": {"alice"}})
	assert.Contains(t, body, "processing video in background...")

	rec.errs["stop"] = &service.RecordingError{Kind: service.ErrNotWatching, Channel: "alice"}
	body = follow(t, r, "/remove", url.Values{"username": {"alice"}})
	assert.Contains(t, body, "Not watching alice")
}

func TestPages_RecordingAction(t *testing.T) {
	r, rec := newTestRouter(t)

	w := form(r, "/recording_action", url.Values{"user": {"alice"}, "path": {"a.mp4"}, "action": {"rename"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid action", w.Body.String())

	w = form(r, "/recording_action", url.Values{"action": {"process"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing path or user", w.Body.String())

	body := follow(t, r, "/recording_action", url.Values{"user": {"alice"}, "path": {"a.mp4"}, "action": {"process"}})
	assert.Contains(t, body, "Processed video: alice/a.mp4")
	assert.Equal(t, "process(alice,a.mp4)", rec.lastCall())

	body = follow(t, r, "/recording_action", url.Values{"user": {"alice"}, "path": {"a.mp4"}, "action": {"delete"}})
	assert.Contains(t, body, "Deleted video: alice/a.mp4")
}

func TestPages_Settings(t *testing.T) {
	r, rec := newTestRouter(t)

	body := follow(t, r, "/settings", url.Values{"auto_process_recordings": {"on"}})
	assert.Contains(t, body, "Settings saved")
	assert.Contains(t, body, "checked")
	assert.Equal(t, "set_auto(on)", rec.lastCall())

	body = follow(t, r, "/settings", url.Values{})
	assert.NotContains(t, body, "checked")
	assert.Equal(t, "set_auto(off)", rec.lastCall())
}

func TestPages_StatusRendersActiveAndRecordings(t *testing.T) {
	r, rec := newTestRouter(t)
	rec.active = []service.ActiveCapture{{Channel: "alice", File: "2024-01-01_00-00-00_live.mp4", StartedAt: time.Now()}}
	rec.recs["bob"] = []recording.Recording{{Channel: "bob", Path: "2024-01-01_00-00-00_old.mp4", SizeMB: 12.5}}

	w := do(r, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2024-01-01_00-00-00_live.mp4")
	assert.Contains(t, w.Body.String(), "2024-01-01_00-00-00_old.mp4")
	assert.Contains(t, w.Body.String(), "12.50")
}
