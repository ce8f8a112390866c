// Package task implements the resumable computation of §4.7/§4.10: one
// in-flight service invocation or task-shape combinator, driven to
// completion by repeated Poll calls from the scheduler.
//
// Resumable computations are modeled as an explicit state machine (§9
// option b) rather than goroutines: the spec requires single-threaded,
// non-preemptive, drop-is-cancel semantics, and a goroutine-based
// coroutine needs extra synchronization to honor "dropped without cleanup
// beyond its own destructors" — a plain struct with a Poll method gets
// that for free by just not being resumed again.
package task

import (
	"vnix/kernel/envelope"
	"vnix/kernel/registry"
	"vnix/kernel/unit"
)

// Shape selects one of the four combinators of §3.
type Shape int

const (
	Simultaneous Shape = iota
	Queue
	Chain
	ChainLoop
	// Invocation is the base case every other shape bottoms out at: one
	// registered service's handler invoked against one envelope.
	Invocation
)

func (s Shape) String() string {
	switch s {
	case Simultaneous:
		return "simultaneous"
	case Queue:
		return "queue"
	case Chain:
		return "chain"
	case ChainLoop:
		return "chain_loop"
	case Invocation:
		return "invocation"
	default:
		return "unknown"
	}
}

// State is the task lifecycle of §4.10: Pending -> Running -> (Completed | Killed).
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateKilled
)

// Step is one (payload, service) pair of a Simultaneous or Queue task.
type Step struct {
	Payload unit.Unit
	Service string
}

// Result is what a task produces on completion: a fresh envelope, or None
// (nil Msg) for the Simultaneous/Queue shapes and a Chain terminated by a
// None reply. A killed task produces no Result at all.
type Result struct {
	Msg *envelope.Msg
	Err error
}

// Task is one scheduled instance of a service invocation or shape combinator.
type Task struct {
	ID            uint64
	ParentID      uint64
	OwnerAuthor   string
	Name          string
	Shape         Shape
	State         State
	CurrentAuthor string

	// Steps is populated for Simultaneous and Queue.
	Steps []Step
	// ChainServices and InitialPayload are populated for Chain/ChainLoop.
	ChainServices  []string
	InitialPayload unit.Unit

	// InMsg, Info and Handler are populated for Invocation.
	InMsg   envelope.Msg
	Info    registry.Info
	Handler registry.Handler

	stepper stepper
}

// New builds a Simultaneous or Queue task.
func New(id, parentID uint64, owner, name string, shape Shape, steps []Step) *Task {
	return &Task{
		ID: id, ParentID: parentID, OwnerAuthor: owner, Name: name,
		Shape: shape, State: StatePending, CurrentAuthor: owner, Steps: steps,
	}
}

// NewChain builds a Chain or ChainLoop task.
func NewChain(id, parentID uint64, owner, name string, loop bool, initial unit.Unit, services []string) *Task {
	shape := Chain
	if loop {
		shape = ChainLoop
	}
	return &Task{
		ID: id, ParentID: parentID, OwnerAuthor: owner, Name: name,
		Shape: shape, State: StatePending, CurrentAuthor: owner,
		InitialPayload: initial, ChainServices: services,
	}
}

// NewInvocation builds the base-case task: msg dispatched to a single
// registered service's handler.
func NewInvocation(id, parentID uint64, msg envelope.Msg, info registry.Info, h registry.Handler) *Task {
	return &Task{
		ID: id, ParentID: parentID, OwnerAuthor: msg.Author, Name: info.Name,
		Shape: Invocation, State: StatePending, CurrentAuthor: msg.Author,
		InMsg: msg, Info: info, Handler: h,
	}
}

// Run constructs the task's resumable computation. Called once when the
// scheduler moves the task from pending_queue into running.
func (t *Task) Run(k registry.KernelHandle) {
	t.State = StateRunning
	switch t.Shape {
	case Simultaneous:
		t.stepper = newSimultaneous(t.Steps, t.CurrentAuthor)
	case Queue:
		t.stepper = newQueueStepper(t.Steps, t.CurrentAuthor)
	case Chain, ChainLoop:
		t.stepper = newChainStepper(t.InitialPayload, t.ChainServices, t.CurrentAuthor, t.Shape == ChainLoop)
	case Invocation:
		t.stepper = newInvocationStepper(t.InMsg, t.Info, t.Handler)
	}
}

// Poll advances the computation by one step. The scheduler calls this once
// per inner-round visit (§4.8); it never blocks.
func (t *Task) Poll(k registry.KernelHandle) (done bool, result Result) {
	if t.stepper == nil {
		t.Run(k)
	}
	done, result = t.stepper.poll(k)
	if done {
		t.State = StateCompleted
	}
	return done, result
}

// Kill marks the task killed. Per §4.11/Testable Property #9, a killed task
// leaves no entry in the result queue — the scheduler simply stops polling
// it and never records a result, matching "dropped without cleanup beyond
// its own destructors".
func (t *Task) Kill() {
	t.State = StateKilled
}

type stepper interface {
	poll(k registry.KernelHandle) (done bool, result Result)
}
