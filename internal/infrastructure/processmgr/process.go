//go:build linux

package processmgr

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// killGrace is how long a terminated process may take to exit before it is
// SIGKILLed.
const killGrace = 3 * time.Second

// Process is a supervised external command, typically one capture.
//
// Lifecycle:
//
//	newProcess → start() → Running() … Terminate() → <-Done() → Err()
//
// The child runs in its own process group (signals reach its helpers too) and
// receives SIGKILL if the parent dies. stdout and stderr are both folded into
// a shared log buffer. Terminate is idempotent and never blocks.
type Process struct {
	log *zap.Logger
	out *lineWriter
	cmd *exec.Cmd

	pid       int
	startedAt time.Time

	// Closed after the process is fully reaped; err is valid after that.
	done chan struct{}
	err  error

	termOnce sync.Once
}

// newProcess constructs a process wrapper around exec.Cmd. Nothing is
// started until start().
func newProcess(log *zap.Logger, logBuf *logBuffer, env, argv []string) (*Process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("empty argv")
	}

	out := newLineWriter(logBuf)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = time.Second // don't hang on grandchildren holding the pipes
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	return &Process{
		log:  log,
		out:  out,
		cmd:  cmd,
		done: make(chan struct{}),
	}, nil
}

// start launches the command and begins supervision.
func (p *Process) start() error {
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.cmd.Path, err)
	}

	p.pid = p.cmd.Process.Pid
	p.startedAt = time.Now()
	p.log = p.log.With(zap.Int("cmd_pid", p.pid))
	p.log.Info("process started")

	go p.supervise()
	return nil
}

// supervise reaps the child once and records its exit.
func (p *Process) supervise() {
	err := p.cmd.Wait()
	p.out.Flush()

	var eerr *exec.ExitError
	switch {
	case err == nil:
		p.log.Info("process exited cleanly", zap.Duration("uptime", time.Since(p.startedAt)))
	case errors.As(err, &eerr):
		status, _ := eerr.Sys().(syscall.WaitStatus)
		p.log.Info("process exited with error status",
			zap.Int("exit_code", status.ExitStatus()),
			zap.Bool("signaled", status.Signaled()),
			zap.String("signal", status.Signal().String()),
			zap.Duration("uptime", time.Since(p.startedAt)))
	default:
		p.log.Error("failed to wait for process", zap.Error(err))
	}

	p.err = err
	close(p.done)
}

// Running reports whether the process has not yet been reaped.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the Wait error. Only meaningful after Done is closed.
func (p *Process) Err() error {
	<-p.done
	return p.err
}

// Terminate initiates deterministic shutdown in the background:
//
//   - sends SIGTERM to the process group
//   - escalates to SIGKILL after killGrace if still alive
//
// Terminate is idempotent and concurrency-safe.
func (p *Process) Terminate() {
	p.termOnce.Do(func() {
		go func() {
			select {
			case <-p.done:
				p.log.Debug("terminate called after exit; ignored")
				return
			default:
			}

			if err := syscall.Kill(-p.pid, syscall.SIGTERM); err != nil {
				p.log.Warn("SIGTERM failed", zap.Error(err))
			} else {
				p.log.Info("SIGTERM sent to process group")
			}

			timer := time.NewTimer(killGrace)
			defer timer.Stop()

			select {
			case <-p.done:
				return
			case <-timer.C:
				p.log.Warn("grace timeout expired; sending SIGKILL", zap.Duration("grace", killGrace))
				if err := syscall.Kill(-p.pid, syscall.SIGKILL); err != nil {
					p.log.Error("SIGKILL failed", zap.Error(err))
				}
			}
		}()
	})
}
