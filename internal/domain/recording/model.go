// Package recording holds the domain types shared by the recorder, the
// filesystem store and the HTTP layer.
package recording

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Status is the live status of an upstream channel.
type Status int

const (
	StatusError Status = iota
	StatusOnline
	StatusOffline
	StatusNotFound
	StatusUnauthorized
)

func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusNotFound:
		return "not_found"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// LiveInfo is the metadata of a live stream, as reported upstream.
type LiveInfo struct {
	Title     string
	UserLogin string
	StartedAt time.Time
}

// Recording is one capture file of a channel.
type Recording struct {
	Channel   string    `json:"channel"`
	Path      string    `json:"path"` // filename relative to the channel directory
	Processed bool      `json:"processed"`
	SizeMB    float64   `json:"size_mb"`
	Capturing bool      `json:"capturing"`
	ModTime   time.Time `json:"modified_at"`

	// Size of the raw file in bytes; used for stability checks.
	Size int64 `json:"-"`
}

const (
	// Ext is the container extension of every capture.
	Ext = ".mp4"

	// TimestampLayout prefixes every capture filename.
	TimestampLayout = "2006-01-02_15-04-05"
)

var (
	ErrInvalidChannel  = errors.New("invalid channel name")
	ErrInvalidFilename = errors.New("invalid recording name")
)

// NormalizeChannel trims and lower-cases name and rejects anything that could
// escape the channel directory.
func NormalizeChannel(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !safePathElem(name) {
		return "", ErrInvalidChannel
	}
	return name, nil
}

// ValidateFilename accepts plain, visible .mp4 filenames only.
func ValidateFilename(name string) error {
	if !safePathElem(name) || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, Ext) {
		return ErrInvalidFilename
	}
	return nil
}

// Filename builds "<timestamp>_<slug>.mp4" for a capture started at t.
func Filename(t time.Time, title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "untitled"
	}
	return t.Format(TimestampLayout) + "_" + s + Ext
}

func safePathElem(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return false
	}
	return filepath.Base(s) == s
}
