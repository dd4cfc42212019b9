package index

import "sync"

// ReadWriteMonitor is a readers/writer monitor guarding one index. Any
// number of readers may hold it together; a writer holds it alone. Readers
// are preferred: a reader never waits while only readers are active.
type ReadWriteMonitor struct {
	mu   sync.Mutex
	cond *sync.Cond
	// status > 0 counts readers, status < 0 counts nested write sections
	status int
}

// NewReadWriteMonitor returns an idle monitor.
func NewReadWriteMonitor() *ReadWriteMonitor {
	m := &ReadWriteMonitor{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// EnterRead blocks until no writer is active, then registers a reader.
func (m *ReadWriteMonitor) EnterRead() {
	m.mu.Lock()
	for m.status < 0 {
		m.cond.Wait()
	}
	m.status++
	m.mu.Unlock()
}

// EnterWrite blocks until the monitor is idle, then takes it exclusively.
func (m *ReadWriteMonitor) EnterWrite() {
	m.mu.Lock()
	for m.status != 0 {
		m.cond.Wait()
	}
	m.status--
	m.mu.Unlock()
}

// ExitRead releases a read section.
func (m *ReadWriteMonitor) ExitRead() {
	m.mu.Lock()
	if m.status <= 0 {
		m.mu.Unlock()
		panic("index: ExitRead without EnterRead")
	}
	m.status--
	if m.status == 0 {
		m.cond.Broadcast()
	}
	m.mu.Unlock()
}

// ExitWrite releases a write section.
func (m *ReadWriteMonitor) ExitWrite() {
	m.mu.Lock()
	if m.status >= 0 {
		m.mu.Unlock()
		panic("index: ExitWrite without EnterWrite")
	}
	m.status++
	if m.status == 0 {
		m.cond.Broadcast()
	}
	m.mu.Unlock()
}

// ExitReadEnterWrite upgrades a read section to a write section when the
// caller is the only reader. It returns false and leaves the read section
// held otherwise; the caller then has to ExitRead and EnterWrite.
func (m *ReadWriteMonitor) ExitReadEnterWrite() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != 1 {
		return false
	}
	m.status = -1
	return true
}

// ExitWriteEnterRead downgrades a write section to a read section without
// letting another writer in between.
func (m *ReadWriteMonitor) ExitWriteEnterRead() {
	m.mu.Lock()
	if m.status != -1 {
		m.mu.Unlock()
		panic("index: ExitWriteEnterRead outside a single write section")
	}
	m.status = 1
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Readers returns the number of active readers.
func (m *ReadWriteMonitor) Readers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status > 0 {
		return m.status
	}
	return 0
}

// Writing reports whether a write section is active.
func (m *ReadWriteMonitor) Writing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status < 0
}
