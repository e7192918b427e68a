package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edirooss/streamrec/pkg/fmtt"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// Client talks to the streamrec JSON API.
type Client struct {
	base  string
	http  *http.Client
	debug io.Writer // nil unless --debug
}

// NewClient returns a client for the server at base (e.g.
// "http://127.0.0.1:5001").
func NewClient(base string, hc *http.Client, debug io.Writer) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", base)
	}
	if hc == nil {
		// Stop and process run a transcode before answering.
		hc = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc, debug: debug}, nil
}

// do sends body (JSON-encoded when non-nil) and decodes a 2xx answer into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, contentType string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if c.debug != nil {
		fmt.Fprintf(c.debug, "%s %s → %s\n", method, path, resp.Status)
		fmt.Fprintf(c.debug, "%s\n", raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if c.debug != nil {
		fmtt.Dump(c.debug, path, out)
	}
	return nil
}
