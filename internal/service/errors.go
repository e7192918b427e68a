package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is; the concrete value returned by the
// Recorder is a *RecordingError carrying the kind.
var (
	ErrNotStreaming        = errors.New("not streaming")
	ErrAlreadyRecording    = errors.New("already recording")
	ErrNotWatching         = errors.New("not watching")
	ErrCaptureLaunchFailed = errors.New("capture launch failed")
	ErrSourceNotFound      = errors.New("source not found")
	ErrTranscodeFailed     = errors.New("transcode failed")
	ErrStatusQueryFailed   = errors.New("status query failed")
	ErrTokenUnavailable    = errors.New("token unavailable")
	ErrSettingsIO          = errors.New("settings io failed")
	ErrInvalidRecording    = errors.New("invalid recording")
	ErrRecordingInProgress = errors.New("recording in progress")
	ErrDeleteFailed        = errors.New("delete failed")
)

// RecordingError is returned by every user-facing Recorder operation.
//
// Error() is safe to show to users: it names the channel and file, never
// paths or causes. The cause stays reachable through Unwrap for logs.
type RecordingError struct {
	Kind    error
	Channel string
	File    string
	Err     error
}

func (e *RecordingError) Error() string {
	switch e.Kind {
	case ErrNotStreaming:
		return e.Channel + " is not streaming"
	case ErrAlreadyRecording:
		return "already recording " + e.Channel
	case ErrNotWatching:
		return "Not watching " + e.Channel
	case ErrCaptureLaunchFailed:
		return "failed to start recording " + e.Channel
	case ErrSourceNotFound:
		return fmt.Sprintf("recording %s/%s not found", e.Channel, e.File)
	case ErrTranscodeFailed:
		return fmt.Sprintf("failed to process %s/%s", e.Channel, e.File)
	case ErrRecordingInProgress:
		return fmt.Sprintf("%s is recording %s", e.Channel, e.File)
	case ErrDeleteFailed:
		return fmt.Sprintf("failed to delete %s/%s", e.Channel, e.File)
	case ErrInvalidRecording:
		if e.File == "" {
			return fmt.Sprintf("invalid channel name %q", e.Channel)
		}
		return fmt.Sprintf("invalid recording %q", e.File)
	case ErrSettingsIO:
		return "failed to access settings"
	default:
		return "recorder error"
	}
}

func (e *RecordingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newRecordingError(kind error, channel, file string, cause error) *RecordingError {
	return &RecordingError{Kind: kind, Channel: channel, File: file, Err: cause}
}

// BatchError aggregates the per-channel failures of a batch start.
type BatchError struct {
	Errs []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

func (e *BatchError) Unwrap() []error { return e.Errs }
