//go:build linux

package service

import (
	"context"

	"github.com/edirooss/streamrec/internal/infrastructure/processmgr"
	"github.com/edirooss/streamrec/pkg/capturecmd"
)

// FFmpegTranscoder remuxes captures with a stream copy.
type FFmpegTranscoder struct {
	runner *processmgr.Runner
	binary string
}

func NewFFmpegTranscoder(runner *processmgr.Runner, binary string) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{runner: runner, binary: binary}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	return t.runner.Run(ctx, capturecmd.TranscodeArgv(t.binary, src, dst))
}
