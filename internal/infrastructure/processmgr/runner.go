//go:build linux

package processmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/edirooss/streamrec/pkg/capturecmd"
	"go.uber.org/zap"
)

// Runner executes one-shot commands (transcodes) to completion.
type Runner struct {
	log *zap.Logger
	env []string
}

// NewRunner constructs a Runner inheriting the server's environment.
func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		log: log.Named("runner"),
		env: os.Environ(),
	}
}

// Run executes argv and waits for it. Cancelling ctx kills the whole process
// group. A non-zero exit is returned as an error carrying the last lines of
// the command's output.
func (r *Runner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return errors.New("empty argv")
	}

	buf := new(logBuffer)
	out := newLineWriter(buf)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = r.env
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	log := r.log.With(zap.String("cmd", capturecmd.Join(argv)))
	start := time.Now()

	err := cmd.Run()
	out.Flush()
	if err != nil {
		tail := buf.Read(5)
		slices.Reverse(tail) // oldest first
		log.Warn("command failed", zap.Error(err), zap.Strings("output", tail), zap.Duration("elapsed", time.Since(start)))
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", argv[0], ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.Join(tail, " | "))
	}

	log.Debug("command finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}
