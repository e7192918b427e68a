package processmgr

import "sync"

// SlotPool is a counting semaphore with explicit ownership.
// Each acquisition is keyed by a caller-chosen identifier (e.g. the file a
// transcode works on). A key can hold at most one slot, which makes the pool
// double as a per-key "in progress" gate.
type SlotPool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	maxCap     int64
	usage      int64
	acquiredBy map[string]struct{} // active ownership table
}

// NewSlotPool initializes the pool with a given capacity.
// Capacities below 1 are raised to 1.
func NewSlotPool(max int64) *SlotPool {
	if max < 1 {
		max = 1
	}
	s := &SlotPool{
		maxCap:     max,
		acquiredBy: make(map[string]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blocks until a slot is free and registers id as its owner.
// It returns false without blocking when id already holds a slot, or when
// id starts holding one while we wait.
func (s *SlotPool) Acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if _, holds := s.acquiredBy[id]; holds {
			return false
		}
		if s.usage < s.maxCap {
			break
		}
		s.cond.Wait()
	}

	s.usage++
	s.acquiredBy[id] = struct{}{}
	return true
}

// Release frees the slot owned by id.
// Releasing an id that does not own a slot is an invariant violation.
func (s *SlotPool) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, holds := s.acquiredBy[id]; !holds {
		panic("SlotPool: release for non-owner id")
	}

	delete(s.acquiredBy, id)
	s.usage--
	// Broadcast: waiters may be blocked on capacity or on their own key.
	s.cond.Broadcast()
}

// Capacity returns the configured concurrency limit.
func (s *SlotPool) Capacity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCap
}

// InUse returns the number of active acquired slots.
func (s *SlotPool) InUse() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
