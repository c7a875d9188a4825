package task

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// scheduled is a callback waiting in the scheduler heap.
type scheduled struct {
	// at is the time the callback becomes due
	at time.Time

	// seq orders callbacks due at the same instant by submission
	seq uint64

	// every is the repeat interval, zero for one-shot callbacks
	every time.Duration

	fn func()

	cancelled atomic.Bool

	// index is the heap index, -1 once popped
	index int
}

// Handle cancels a callback submitted to a Scheduler.
type Handle struct {
	s *scheduled
}

// Cancel prevents future runs of the callback. A run already in progress is
// not interrupted.
func (h *Handle) Cancel() {
	if h != nil && h.s != nil {
		h.s.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (h *Handle) Cancelled() bool {
	return h == nil || h.s == nil || h.s.cancelled.Load()
}

// Scheduler runs time-ordered callbacks on one dedicated goroutine, the
// process-wide scheduled-task thread. Callbacks must be short: a slow callback
// delays every callback behind it.
type Scheduler struct {
	log *slog.Logger

	mu    sync.Mutex
	heap  []*scheduled
	seq   uint64
	notif chan struct{}

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		log:    log,
		heap:   make([]*scheduled, 0, 64),
		notif:  make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the scheduler goroutine. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	if s.running.Swap(true) {
		return
	}
	go s.loop()
}

// Stop stops the scheduler goroutine and waits for it to exit. Pending
// callbacks are dropped.
func (s *Scheduler) Stop() {
	if !s.running.Swap(false) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

// After runs fn once after d.
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	return s.push(time.Now().Add(d), 0, fn)
}

// At runs fn once at t. A time in the past runs on the next wake-up.
func (s *Scheduler) At(t time.Time, fn func()) *Handle {
	return s.push(t, 0, fn)
}

// Every runs fn every interval, starting one interval from now, until the
// handle is cancelled.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Handle {
	if interval <= 0 {
		panic("task: Every interval must be positive")
	}
	return s.push(time.Now().Add(interval), interval, fn)
}

// Len returns the number of callbacks waiting, including cancelled ones that
// have not been swept yet.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

func (s *Scheduler) push(at time.Time, every time.Duration, fn func()) *Handle {
	e := &scheduled{at: at, every: every, fn: fn}

	s.mu.Lock()
	if len(s.heap) > 100 && len(s.heap)%100 == 0 {
		s.compact()
	}
	s.seq++
	e.seq = s.seq
	s.insert(e)
	s.mu.Unlock()

	select {
	case s.notif <- struct{}{}:
	default:
	}
	return &Handle{s: e}
}

// loop waits for the earliest callback and runs everything that is due.
func (s *Scheduler) loop() {
	defer close(s.doneCh)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.resetTimer(timer)

		select {
		case <-s.stopCh:
			return
		case <-s.notif:
		case now := <-timer.C:
			s.runDue(now)
		}
	}
}

// resetTimer arms timer for the earliest callback.
func (s *Scheduler) resetTimer(timer *time.Timer) {
	wait := time.Hour
	s.mu.Lock()
	if len(s.heap) > 0 {
		wait = time.Until(s.heap[0].at)
		if wait < 0 {
			wait = 0
		}
	}
	s.mu.Unlock()
	timer.Reset(wait)
}

// runDue pops and runs every callback due at now, re-inserting repeating ones.
func (s *Scheduler) runDue(now time.Time) {
	s.mu.Lock()
	var due []*scheduled
	for len(s.heap) > 0 && !s.heap[0].at.After(now) {
		e := s.pop()
		if !e.cancelled.Load() {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		if e.cancelled.Load() {
			continue
		}
		s.call(e)
		if e.every > 0 && !e.cancelled.Load() {
			// Drift-free: schedule from the previous due time, catching up if late.
			e.at = e.at.Add(e.every)
			if e.at.Before(now) {
				e.at = now.Add(e.every)
			}
			s.mu.Lock()
			s.seq++
			e.seq = s.seq
			s.insert(e)
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) call(e *scheduled) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("flint: panic in scheduled callback",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	e.fn()
}

// compact removes cancelled callbacks and restores the heap property.
// Caller must hold the lock.
func (s *Scheduler) compact() {
	write := 0
	for _, e := range s.heap {
		if e.cancelled.Load() {
			continue
		}
		s.heap[write] = e
		e.index = write
		write++
	}
	clear(s.heap[write:])
	s.heap = s.heap[:write]
	for i := len(s.heap)/2 - 1; i >= 0; i-- {
		s.down(i, len(s.heap))
	}
}

func (s *Scheduler) insert(e *scheduled) {
	e.index = len(s.heap)
	s.heap = append(s.heap, e)
	s.up(e.index)
}

func (s *Scheduler) pop() *scheduled {
	n := len(s.heap) - 1
	s.swap(0, n)
	s.down(0, n)
	e := s.heap[n]
	s.heap[n] = nil
	s.heap = s.heap[:n]
	e.index = -1
	return e
}

func (s *Scheduler) less(i, j int) bool {
	a, b := s.heap[i], s.heap[j]
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}

func (s *Scheduler) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !s.less(i, parent) {
			break
		}
		s.swap(i, parent)
		i = parent
	}
}

func (s *Scheduler) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		j := left
		if right := left + 1; right < n && s.less(right, left) {
			j = right
		}
		if !s.less(j, i) {
			return
		}
		s.swap(i, j)
		i = j
	}
}

func (s *Scheduler) swap(i, j int) {
	s.heap[i], s.heap[j] = s.heap[j], s.heap[i]
	s.heap[i].index = i
	s.heap[j].index = j
}
