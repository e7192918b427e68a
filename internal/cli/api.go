package cli

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ActiveCapture mirrors the server's view of a running capture.
type ActiveCapture struct {
	Channel   string    `json:"channel"`
	File      string    `json:"file"`
	StartedAt time.Time `json:"started_at"`
}

// Recording mirrors one entry of GET /api/recordings.
type Recording struct {
	Channel   string  `json:"channel"`
	Path      string  `json:"path"`
	Processed bool    `json:"processed"`
	SizeMB    float64 `json:"size_mb"`
	Capturing bool    `json:"capturing"`
}

// LoopStats mirrors GET /api/reconcile.
type LoopStats struct {
	Running       bool  `json:"running"`
	Starts        int64 `json:"starts"`
	Stops         int64 `json:"stops"`
	Transcodes    int64 `json:"transcodes"`
	MaxTranscodes int64 `json:"max_transcodes"`
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", "", nil, nil)
}

func (c *Client) Start(ctx context.Context, channels []string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/channels", "", map[string][]string{"channels": channels}, &resp)
	return resp.Message, err
}

func (c *Client) Stop(ctx context.Context, channel string) error {
	return c.do(ctx, http.MethodDelete, "/api/channels/"+url.PathEscape(channel), "", nil, nil)
}

func (c *Client) Active(ctx context.Context) ([]ActiveCapture, error) {
	var out []ActiveCapture
	err := c.do(ctx, http.MethodGet, "/api/channels", "", nil, &out)
	return out, err
}

func (c *Client) Logs(ctx context.Context, channel string, lines int) ([]string, error) {
	var out struct {
		Lines []string `json:"lines"`
	}
	path := "/api/channels/" + url.PathEscape(channel) + "/logs?lines=" + strconv.Itoa(lines)
	err := c.do(ctx, http.MethodGet, path, "", nil, &out)
	return out.Lines, err
}

func (c *Client) Recordings(ctx context.Context) (map[string][]Recording, error) {
	var out map[string][]Recording
	err := c.do(ctx, http.MethodGet, "/api/recordings", "", nil, &out)
	return out, err
}

func (c *Client) Process(ctx context.Context, channel, file string) error {
	path := "/api/recordings/" + url.PathEscape(channel) + "/" + url.PathEscape(file) + "/process"
	return c.do(ctx, http.MethodPost, path, "", nil, nil)
}

func (c *Client) Delete(ctx context.Context, channel, file string) error {
	path := "/api/recordings/" + url.PathEscape(channel) + "/" + url.PathEscape(file)
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

func (c *Client) SetAutoProcess(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/settings/auto-process", "", map[string]bool{"enabled": enabled}, nil)
}

func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/api/settings", "", nil, &out)
	return out, err
}

func (c *Client) Reconcile(ctx context.Context) (LoopStats, error) {
	var out LoopStats
	err := c.do(ctx, http.MethodGet, "/api/reconcile", "", nil, &out)
	return out, err
}
