package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"github.com/edirooss/streamrec/internal/service"
)

// Recorder is the part of service.Recorder the HTTP layer drives.
type Recorder interface {
	Start(ctx context.Context, channel string) error
	StartMany(ctx context.Context, channels []string) error
	Stop(ctx context.Context, channel string) error
	Process(ctx context.Context, channel, file string) error
	Delete(ctx context.Context, channel, file string) error
	ListRecordings(ctx context.Context) (map[string][]recording.Recording, error)
	ActiveChannels() []service.ActiveCapture

	AutoProcess(ctx context.Context) (bool, error)
	SetAutoProcess(ctx context.Context, enabled bool) error
	SyncAutoProcess(ctx context.Context) error
	LoopStats() service.LoopStats
}

// LogReader exposes retained capture output, newest line first.
type LogReader interface {
	Read(channel string, lines int) ([]string, bool)
}

// statusFor maps recorder errors to HTTP status codes. For a batch the most
// severe member wins.
func statusFor(err error) int {
	var batch *service.BatchError
	if errors.As(err, &batch) {
		status := http.StatusOK
		for _, e := range batch.Errs {
			status = max(status, statusFor(e))
		}
		return status
	}

	switch {
	case errors.Is(err, service.ErrInvalidRecording):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotStreaming),
		errors.Is(err, service.ErrAlreadyRecording),
		errors.Is(err, service.ErrNotWatching),
		errors.Is(err, service.ErrRecordingInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
