package processmgr

import "sync"

// LogManager keeps the output tail of capture processes, one buffer per
// channel. Buffers survive process restarts so the previous session's last
// lines remain readable after a stop.
type LogManager struct {
	mu   sync.RWMutex          // guards bufs
	bufs map[string]*logBuffer // channel → log buffer
}

// NewLogManager initializes an empty log-buffer registry.
func NewLogManager() *LogManager {
	return &LogManager{
		bufs: make(map[string]*logBuffer),
	}
}

// get returns the log buffer for key, creating it if missing.
func (lm *LogManager) get(key string) *logBuffer {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if buf, ok := lm.bufs[key]; ok {
		return buf
	}

	buf := new(logBuffer)
	lm.bufs[key] = buf
	return buf
}

// Read retrieves the last N log entries for key, newest → oldest.
// lines <= 0 returns everything retained (max 500).
// The bool is false when nothing was ever logged for key.
func (lm *LogManager) Read(key string, lines int) ([]string, bool) {
	lm.mu.RLock()
	buf, ok := lm.bufs[key]
	lm.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return buf.Read(lines), true
}
