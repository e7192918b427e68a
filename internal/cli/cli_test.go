package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Method, Path, Query, ContentType, Body string
}

type fakeServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []call
}

// newFakeServer answers every request with respond and records it.
func newFakeServer(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *fakeServer {
	t.Helper()
	s := &fakeServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls = append(s.calls, call{r.Method, r.URL.EscapedPath(), r.URL.RawQuery, r.Header.Get("Content-Type"), string(body)})
		s.mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) last() call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func run(t *testing.T, srv *fakeServer, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps := &Dependencies{
		Out: &out,
		Err: &errOut,
		Now: func() time.Time { return time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC) },
	}
	cmd := NewRootCmd(deps)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestStart(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Started recording alice, bob"})
	})

	out, _, err := run(t, srv, "start", "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, "✅ Started recording alice, bob\n", out)
	got := srv.last()
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/channels", got.Path)
	assert.Equal(t, "application/json", got.ContentType)
	assert.JSONEq(t, `{"channels":["alice","bob"]}`, got.Body)
}

func TestStart_ServerMessageBecomesError(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "alice is not streaming"})
	})

	_, _, err := run(t, srv, "start", "alice")
	require.Error(t, err)
	assert.Equal(t, "alice is not streaming", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestStart_RequiresChannel(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, _, err := run(t, srv, "start")
	assert.Error(t, err)
	assert.Empty(t, srv.calls)
}

func TestStop(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	out, _, err := run(t, srv, "stop", "alice")
	require.NoError(t, err)
	assert.Equal(t, "✅ Stopped recording alice\n", out)
	assert.Equal(t, call{Method: http.MethodDelete, Path: "/api/channels/alice"}, srv.last())
}

func TestErrorWithoutMessage(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	_, _, err := run(t, srv, "stop", "alice")
	require.Error(t, err)
	assert.Equal(t, "server answered 502 Bad Gateway", err.Error())
}

func TestProcessAndRemove(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	out, _, err := run(t, srv, "process", "alice", "2024-01-01_00-00-00_a b.mp4")
	require.NoError(t, err)
	assert.Equal(t, "✅ Processed video: alice/2024-01-01_00-00-00_a b.mp4\n", out)
	assert.Equal(t, "/api/recordings/alice/2024-01-01_00-00-00_a%20b.mp4/process", srv.last().Path)
	assert.Equal(t, http.MethodPost, srv.last().Method)

	out, _, err = run(t, srv, "rm", "alice", "x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "✅ Deleted video: alice/x.mp4\n", out)
	assert.Equal(t, call{Method: http.MethodDelete, Path: "/api/recordings/alice/x.mp4"}, srv.last())
}

func TestAutoProcess(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
	})

	out, _, err := run(t, srv, "auto-process", "on")
	require.NoError(t, err)
	assert.Equal(t, "✅ Auto-process on\n", out)
	assert.Equal(t, http.MethodPut, srv.last().Method)
	assert.JSONEq(t, `{"enabled":true}`, srv.last().Body)

	_, _, err = run(t, srv, "auto-process", "maybe")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]Recording{
			"bob":   {{Channel: "bob", Path: "b.mp4", SizeMB: 2, Processed: true}},
			"alice": {{Channel: "alice", Path: "a.mp4", SizeMB: 1.25, Capturing: true}},
			"carol": {},
		})
	})

	out, _, err := run(t, srv, "ls")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "CHANNEL")
	assert.Regexp(t, `^alice\s+a\.mp4\s+1\.25\s+recording$`, lines[1])
	assert.Regexp(t, `^bob\s+b\.mp4\s+2\.00\s+processed$`, lines[2])
}

func TestList_Empty(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]Recording{})
	})

	out, _, err := run(t, srv, "ls")
	require.NoError(t, err)
	assert.Equal(t, "ℹ️  No recordings found\n", out)
}

func TestStatus(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/channels":
			writeJSON(w, http.StatusOK, []ActiveCapture{{
				Channel:   "alice",
				File:      "a.mp4",
				StartedAt: time.Date(2024, 1, 1, 0, 30, 5, 0, time.UTC),
			}})
		case "/api/settings":
			writeJSON(w, http.StatusOK, map[string]any{"auto_process_recordings": true})
		case "/api/reconcile":
			writeJSON(w, http.StatusOK, LoopStats{Running: true, Starts: 1, Transcodes: 1, MaxTranscodes: 2})
		default:
			http.NotFound(w, r)
		}
	})

	out, _, err := run(t, srv, "status")
	require.NoError(t, err)
	assert.Regexp(t, `alice\s+a\.mp4\s+29m55s`, out)
	assert.Contains(t, out, "Auto-process: on (background loop running, transcodes 1/2)")
}

func TestLogs(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"channel": "alice", "lines": []string{"second", "first"}})
	})

	out, _, err := run(t, srv, "logs", "alice", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, "second\nfirst\n", out)
	assert.Equal(t, "/api/channels/alice/logs", srv.last().Path)
	assert.Equal(t, "lines=2", srv.last().Query)
}

func TestDebugDumpsResponses(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/channels":
			writeJSON(w, http.StatusOK, []ActiveCapture{{Channel: "alice", File: "a.mp4"}})
		case "/api/reconcile":
			writeJSON(w, http.StatusOK, LoopStats{})
		default:
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	})

	_, dbg, err := run(t, srv, "--debug", "status")
	require.NoError(t, err)

	assert.Contains(t, dbg, "GET /api/channels → 200 OK")
	assert.Contains(t, dbg, "--- /api/channels")
	assert.Contains(t, dbg, `Channel: (string) (len=5) "alice"`)
}

func TestReportError_DebugPrintsChain(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "alice is not streaming"})
	})

	for _, debug := range []bool{false, true} {
		var out, errOut bytes.Buffer
		deps := &Dependencies{Out: &out, Err: &errOut}
		cmd := NewRootCmd(deps)
		args := []string{"--server", srv.URL, "start", "alice"}
		if debug {
			args = append([]string{"--debug"}, args...)
		}
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)

		errOut.Reset()
		ReportError(deps, err)
		assert.Contains(t, errOut.String(), "❌ alice is not streaming\n")
		if debug {
			assert.Contains(t, errOut.String(), "[0] *cli.APIError: alice is not streaming")
		} else {
			assert.NotContains(t, errOut.String(), "*cli.APIError")
		}
	}
}

func TestInvalidServerURL(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&Dependencies{Out: &out, Err: &errOut})
	cmd.SetArgs([]string{"--server", "not a url", "ls"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server URL")
}
