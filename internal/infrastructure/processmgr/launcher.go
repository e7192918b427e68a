//go:build linux

package processmgr

import (
	"fmt"
	"os"
	"time"

	"github.com/edirooss/streamrec/pkg/capturecmd"
	"go.uber.org/zap"
)

// ArgvFunc builds the capture command line for a channel and output file.
type ArgvFunc func(channel, outputPath string) []string

// CaptureLauncher spawns capture processes. Each process's output is kept in
// the LogManager under its channel name.
type CaptureLauncher struct {
	log  *zap.Logger
	logs *LogManager
	env  []string
	argv ArgvFunc
}

// NewCaptureLauncher wires a launcher. logs may be shared with the HTTP layer
// to expose capture output.
func NewCaptureLauncher(log *zap.Logger, logs *LogManager, argv ArgvFunc) *CaptureLauncher {
	return &CaptureLauncher{
		log:  log.Named("capture"),
		logs: logs,
		env:  os.Environ(),
		argv: argv,
	}
}

// Spawn starts a capture of channel into outputPath and returns without
// waiting for it to finish.
func (l *CaptureLauncher) Spawn(channel, outputPath string) (*Process, error) {
	argv := l.argv(channel, outputPath)
	log := l.log.With(zap.String("channel", channel), zap.String("cmd", capturecmd.Join(argv)))

	buf := l.logs.get(channel)
	buf.Append(fmt.Sprintf("--- capture started %s ---", time.Now().Format(time.RFC3339)))

	p, err := newProcess(log, buf, l.env, argv)
	if err != nil {
		return nil, fmt.Errorf("new process: %w", err)
	}
	if err := p.start(); err != nil {
		buf.Append(err.Error())
		log.Error("failed to spawn capture", zap.Error(err))
		return nil, err
	}
	return p, nil
}
