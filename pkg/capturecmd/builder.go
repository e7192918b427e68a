// Package capturecmd builds canonical CLI invocations for the capture tool
// (streamlink) and the transcode tool (ffmpeg).
//
// This layer is pure command construction: no execution, no I/O. It owns CLI
// shape (flags, ordering, quoting) and nothing else; process lifecycle belongs
// to internal/infrastructure/processmgr.
//
// Usage:
//
//	argv := capturecmd.CaptureArgv(opts, "alice", "/data/recorded/alice/x.mp4")
//	argv  = capturecmd.TranscodeArgv("ffmpeg", src, dst)
//	log.Debug("spawn", zap.String("cmd", capturecmd.Join(argv)))
package capturecmd

import (
	"strings"
)

// Builder constructs argv.
//
// The Builder implements a fluent API; it is NOT concurrency-safe.
//
// Invariants:
//   - argv[0] is always the binary passed to NewBuilder.
//   - All With* methods are deterministic and order-preserving.
//   - BuildArgv returns a defensive copy.
type Builder struct {
	args []string // argv including binary name at index 0
}

// NewBuilder returns a Builder pre-seeded with the binary name.
func NewBuilder(binary string) *Builder {
	return &Builder{args: []string{binary}}
}

// WithFlag appends a bare flag (e.g. "-y").
func (b *Builder) WithFlag(flag string) *Builder {
	if flag != "" {
		b.args = append(b.args, flag)
	}
	return b
}

// WithBoolFlag appends flag only when val is true.
func (b *Builder) WithBoolFlag(flag string, val bool) *Builder {
	if val {
		b.WithFlag(flag)
	}
	return b
}

// WithStringFlag appends a flag with a string value if non-empty.
// Empty string is considered invalid and skipped to avoid surprising empties.
func (b *Builder) WithStringFlag(flag, val string) *Builder {
	if val != "" {
		b.args = append(b.args, flag, val)
	}
	return b
}

// WithString appends a positional string argument if non-empty.
func (b *Builder) WithString(arg string) *Builder {
	if arg != "" {
		b.args = append(b.args, arg)
	}
	return b
}

// WithStrings appends positional arguments in order, skipping empties.
func (b *Builder) WithStrings(args ...string) *Builder {
	for _, a := range args {
		b.WithString(a)
	}
	return b
}

// BuildArgv returns a defensive copy of the constructed argument vector.
func (b *Builder) BuildArgv() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

// Join renders argv as one shell-quoted command string, for logs.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shQuote returns a POSIX-safe single-quoted token.
// An empty string becomes a pair of quotes so it survives a round trip.
func shQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
