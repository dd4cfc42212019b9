package indexer

import "sync"

// containerLocks rejects overlapping full runs on one container while
// letting different containers index concurrently.
type containerLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

// tryLock reports whether container was free, marking it held if so.
func (l *containerLocks) tryLock(container string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[container] {
		return false
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	l.held[container] = true
	return true
}

func (l *containerLocks) unlock(container string) {
	l.mu.Lock()
	delete(l.held, container)
	l.mu.Unlock()
}
