// Package scheduler implements the cooperative scheduler of §4.8: a
// single-threaded, non-preemptive engine that owns the pending queue and
// running set, interleaves task resumption to completion, and collects
// results.
package scheduler

import (
	"sync"

	"vnix/kernel/envelope"
	"vnix/kernel/registry"
	"vnix/kernel/task"
	"vnix/kernel/utils"
)

// Signal is posted against a running task.
type Signal int

const (
	SignalKill Signal = iota
)

// TaskResult is one entry of the scheduler's result queue.
type TaskResult struct {
	TaskID uint64
	Msg    *envelope.Msg
	Err    error
}

type activeEntry struct {
	t    *task.Task
	done bool
}

// Scheduler owns the pending queue, running set, signals, results and the
// id counters of §4.8, all guarded by one mutex (§5: "the lock is acquired
// and released around each atomic scheduler mutation").
type Scheduler struct {
	mu sync.Mutex

	pending []*task.Task
	active  []*activeEntry
	byID    map[uint64]*activeEntry

	signals map[uint64]Signal
	results map[uint64]*TaskResult // first-pending-result per id; re-polled via TakeResult

	nextID    uint64
	currentID uint64

	stop bool

	logger *utils.Logger
}

// New returns an empty scheduler.
func New(logger *utils.Logger) *Scheduler {
	if logger == nil {
		logger = utils.DefaultLogger("scheduler")
	}
	return &Scheduler{
		byID:    make(map[uint64]*activeEntry),
		signals: make(map[uint64]Signal),
		results: make(map[uint64]*TaskResult),
		nextID:  1,
		logger:  logger,
	}
}

// RegisterTask allocates an id (Invariant 2: strictly monotonic) and places
// t onto the pending queue. If parentID is 0, t is its own parent (root
// task, per Invariant 2's "parent_id of the root task is itself").
func (s *Scheduler) RegisterTask(t *task.Task) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	t.ID = id
	if t.ParentID == 0 {
		t.ParentID = id
	}
	s.pending = append(s.pending, t)
	return id
}

// PostSignal appends a signal for id, consumed on the next visit to that
// task (§4.8 step 2a).
func (s *Scheduler) PostSignal(id uint64, sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[id] = sig
}

// TakeResult removes and returns the first pending result for id, or
// ready=false if none is available yet. It is legal to poll repeatedly.
func (s *Scheduler) TakeResult(id uint64) (msg *envelope.Msg, ready bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	delete(s.results, id)
	return r.Msg, true, r.Err
}

// IsRunning reports whether id is in the running set, for tests and
// introspection (scenario S4).
func (s *Scheduler) IsRunning(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	return ok && !e.done
}

// HasResult reports whether a result for id is waiting to be taken.
func (s *Scheduler) HasResult(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.results[id]
	return ok
}

// Stop requests the outer loop exit after the in-flight inner round
// completes. Used by the CLI's graceful-shutdown path; the core spec
// otherwise has Run never return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = true
}

func (s *Scheduler) shouldStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

// Run drives the outer-tick/inner-round algorithm of §4.8. It does not
// return under normal operation; call it from its own goroutine and use
// Stop for cooperative shutdown.
func (s *Scheduler) Run(k registry.KernelHandle) {
	for !s.shouldStop() {
		s.outerTick(k)
	}
}

// Tick runs exactly one outer tick, for tests and for callers that want to
// drive the scheduler manually instead of via Run's infinite loop.
func (s *Scheduler) Tick(k registry.KernelHandle) {
	s.outerTick(k)
}

func (s *Scheduler) outerTick(k registry.KernelHandle) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	for _, t := range batch {
		e := &activeEntry{t: t}
		s.active = append(s.active, e)
		s.byID[t.ID] = e
	}
	s.mu.Unlock()

	for _, e := range batch {
		e.t.Run(k)
	}

	s.innerRound(k)
}

// innerRound is one visit to every active task (§4.8 step 2): each
// un-finished task is polled exactly once, a pending Kill signal is
// consumed silently instead of polling, and any child task a poll
// registered is folded into the active set before the round ends. It does
// NOT loop to a fixpoint — the outer Run loop supplies the repetition, so
// that a task blocked on an unready child never starves the scheduler from
// observing a signal or a newly-registered task posted concurrently.
func (s *Scheduler) innerRound(k registry.KernelHandle) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	for _, e := range active {
		if e.done {
			continue
		}

		s.mu.Lock()
		sig, killed := s.signals[e.t.ID]
		if killed {
			delete(s.signals, e.t.ID)
		}
		s.mu.Unlock()

		if killed && sig == SignalKill {
			// Killed tasks are silent: no result is ever written
			// (Testable Property #9).
			e.done = true
			continue
		}

		s.mu.Lock()
		s.currentID = e.t.ID
		s.mu.Unlock()

		done, result := e.t.Poll(k)
		if done {
			e.done = true
			if result.Err != nil {
				s.logger.Error("task completed with error",
					utils.Uint64("task_id", e.t.ID), utils.Err(result.Err))
			}
			s.mu.Lock()
			s.results[e.t.ID] = &TaskResult{TaskID: e.t.ID, Msg: result.Msg, Err: result.Err}
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	newly := s.pending
	s.pending = nil
	for _, t := range newly {
		e := &activeEntry{t: t}
		s.active = append(s.active, e)
		s.byID[t.ID] = e
	}
	s.mu.Unlock()
	for _, t := range newly {
		t.Run(k)
	}

	s.mu.Lock()
	remaining := s.active[:0]
	for _, e := range s.active {
		if !e.done {
			remaining = append(remaining, e)
		} else {
			delete(s.byID, e.t.ID)
		}
	}
	s.active = remaining
	s.mu.Unlock()
}
