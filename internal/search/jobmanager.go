package search

import (
	"context"
	"log"
	"sync"

	"github.com/dshills/javacontext-mcp/internal/index"
)

// Job is a unit of work run by the JobManager.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (j funcJob) Name() string { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// NewJob wraps a function as a Job.
func NewJob(name string, run func(context.Context) error) Job {
	return funcJob{name: name, run: run}
}

// MergeJob merges the pending writes of x under its write section.
func MergeJob(x *index.Index) Job {
	return NewJob("merge "+x.Container(), func(ctx context.Context) error {
		if !x.HasPendingWrites() {
			return nil
		}
		x.Monitor().EnterWrite()
		defer x.Monitor().ExitWrite()
		return x.Merge(ctx)
	})
}

// WaitPolicy decides how a search relates to queued background jobs.
type WaitPolicy int

const (
	// ForceImmediate runs the search at once against the current indexes.
	ForceImmediate WaitPolicy = iota
	// CancelIfNotReady fails with ErrNotReady while jobs are queued.
	CancelIfNotReady
	// WaitUntilReady blocks until the background queue is empty.
	WaitUntilReady
)

func (p WaitPolicy) String() string {
	switch p {
	case ForceImmediate:
		return "force_immediate"
	case CancelIfNotReady:
		return "cancel_if_not_ready"
	case WaitUntilReady:
		return "wait_until_ready"
	default:
		return "unknown"
	}
}

// ParseWaitPolicy is the inverse of WaitPolicy.String.
func ParseWaitPolicy(s string) (WaitPolicy, bool) {
	for p := ForceImmediate; p <= WaitUntilReady; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// JobManager runs background jobs (index merges, re-indexing) one at a time
// and runs search jobs concurrently with them under a WaitPolicy.
type JobManager struct {
	mu     sync.Mutex
	queue  []Job
	active Job
	// idle is closed while nothing is queued or running
	idle   chan struct{}
	busy   bool
	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager creates a stopped manager. Requested jobs wait until Start.
func NewJobManager() *JobManager {
	idle := make(chan struct{})
	close(idle)
	return &JobManager{idle: idle, wake: make(chan struct{}, 1)}
}

// Start launches the background worker. It is a no-op when already
// started.
func (m *JobManager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop cancels the running job, discards the queue and waits for the
// worker to exit.
func (m *JobManager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.queue = nil
	m.setIdleLocked()
	m.mu.Unlock()
}

// Request queues a background job.
func (m *JobManager) Request(job Job) {
	m.mu.Lock()
	m.queue = append(m.queue, job)
	if !m.busy {
		m.busy = true
		m.idle = make(chan struct{})
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// AwaitingJobs returns the number of queued or running background jobs.
func (m *JobManager) AwaitingJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	if m.active != nil {
		n++
	}
	return n
}

// PerformConcurrentJob runs job in the caller's goroutine, after applying
// policy to the background queue.
func (m *JobManager) PerformConcurrentJob(ctx context.Context, job Job, policy WaitPolicy) error {
	if err := checkCanceled(ctx); err != nil {
		return err
	}
	switch policy {
	case CancelIfNotReady:
		if m.AwaitingJobs() > 0 {
			return ErrNotReady
		}
	case WaitUntilReady:
		m.mu.Lock()
		idle := m.idle
		m.mu.Unlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return checkCanceled(ctx)
		}
	}
	return job.Run(ctx)
}

func (m *JobManager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		job := m.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
				continue
			}
		}
		if err := job.Run(ctx); err != nil {
			log.Printf("search: background job %s failed: %v", job.Name(), err)
		}
		m.mu.Lock()
		m.active = nil
		if len(m.queue) == 0 {
			m.setIdleLocked()
		}
		m.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
	}
}

func (m *JobManager) next() Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	job := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.active = job
	return job
}

func (m *JobManager) setIdleLocked() {
	m.active = nil
	if m.busy {
		m.busy = false
		close(m.idle)
	}
}
