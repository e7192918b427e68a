package processmgr

import (
	"bytes"
	"sync"
)

// logBuffer is a thread-safe circular buffer for log entries with O(1) append and O(N) read
type logBuffer struct {
	entries [500]string  // Fixed-size circular buffer (no heap allocations)
	head    int          // Next write position (0-499)
	size    int          // Current number of entries (0-500)
	full    bool         // Whether buffer has wrapped around
	mu      sync.RWMutex // Read-write mutex; Protects all fields
}

// Append adds a log entry (overwrites oldest if full)
//
// Complexity: O(1) time, O(1) space
func (b *logBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const capN = len(b.entries)

	b.entries[b.head] = entry
	b.head = (b.head + 1) % capN

	if b.full {
		return
	}
	b.size++
	if b.size == capN {
		b.full = true
	}
}

// Read returns last N entries (newest → oldest)
// Returns a NEW slice (caller owns memory)
//
// Semantics:
//   - If lines <= 0: returns up to 500 lines (whatever is available), newest → oldest
//   - If lines > 500: clamped to 500
func (b *logBuffer) Read(lines int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	const capN = len(b.entries)
	if b.size == 0 {
		return nil
	}

	if lines <= 0 || lines > capN {
		lines = capN
	}

	n := b.size
	if n > lines {
		n = lines
	}

	result := make([]string, n)

	var newest int
	if b.full {
		// head points to the oldest (next overwrite); newest is one behind head
		newest = (b.head - 1 + capN) % capN
	} else {
		newest = b.size - 1
	}

	for i := 0; i < n; i++ {
		idx := (newest - i + capN) % capN
		result[i] = b.entries[idx]
	}

	return result
}

// lineWriter adapts a logBuffer to io.Writer, appending one entry per line.
// Carriage returns (progress redraws) also terminate a line.
// A trailing partial line is held until the next newline or Flush.
type lineWriter struct {
	buf *logBuffer

	mu      sync.Mutex
	partial []byte
}

func newLineWriter(buf *logBuffer) *lineWriter {
	return &lineWriter{buf: buf}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data := append(w.partial, p...)
	for {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		if line := data[:i]; len(line) > 0 {
			w.buf.Append(string(line))
		}
		data = data[i+1:]
	}
	w.partial = append(w.partial[:0], data...)
	return len(p), nil
}

// Flush appends any pending partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.partial) > 0 {
		w.buf.Append(string(w.partial))
		w.partial = w.partial[:0]
	}
}
