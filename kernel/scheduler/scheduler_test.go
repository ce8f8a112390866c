package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/envelope"
	"vnix/kernel/task"
	"vnix/kernel/unit"
)

// fakeKernel resolves every Send immediately with a None reply, except ids
// explicitly marked never-ready in the blocked map — used to exercise a
// task that sits in the running set until a Kill signal removes it.
type fakeKernel struct {
	nextID  uint64
	blocked map[uint64]bool
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{blocked: make(map[uint64]bool)}
}

func (f *fakeKernel) Send(service string, payload unit.Unit, author string) (uint64, error) {
	f.nextID++
	return f.nextID, nil
}

func (f *fakeKernel) TakeResult(id uint64) (envelope.Msg, bool, bool, error) {
	if f.blocked[id] {
		return envelope.Msg{}, false, false, nil
	}
	return envelope.Msg{}, true, true, nil
}

func (f *fakeKernel) MakeEnvelope(author string, payload unit.Unit) (envelope.Msg, error) {
	return envelope.Msg{Author: author, Payload: payload}, nil
}

func TestSchedulerCompletesSimpleTask(t *testing.T) {
	s := New(nil)
	k := newFakeKernel()

	tsk := task.New(0, 0, "root", "demo", task.Simultaneous, []task.Step{
		{Payload: unit.NewInt(1), Service: "a"},
	})
	id := s.RegisterTask(tsk)
	assert.Equal(t, uint64(1), id)

	for i := 0; i < 10 && !s.HasResult(id); i++ {
		s.Tick(k)
	}
	require.True(t, s.HasResult(id))
	msg, ready, err := s.TakeResult(id)
	require.True(t, ready)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.False(t, s.IsRunning(id))
}

func TestSchedulerKillIsSilent(t *testing.T) {
	s := New(nil)
	k := newFakeKernel()

	// A Queue task whose single step never resolves: fakeKernel.Send
	// returns an id this test marks blocked, so the task parks waiting
	// for a reply that never comes until it is killed.
	tsk := task.New(0, 0, "root", "demo", task.Queue, []task.Step{
		{Payload: unit.NewInt(1), Service: "a"},
	})
	id := s.RegisterTask(tsk)

	s.Tick(k) // moves to active, dispatches the step
	require.True(t, s.IsRunning(id))
	k.blocked[1] = true // the child id the queue stepper dispatched

	s.Tick(k)
	require.True(t, s.IsRunning(id))
	require.False(t, s.HasResult(id))

	s.PostSignal(id, SignalKill)
	s.Tick(k)

	assert.False(t, s.IsRunning(id))
	assert.False(t, s.HasResult(id), "a killed task must never produce a result (Testable Property #9)")
}

func TestSchedulerMonotonicIDs(t *testing.T) {
	s := New(nil)
	id1 := s.RegisterTask(task.New(0, 0, "root", "a", task.Simultaneous, nil))
	id2 := s.RegisterTask(task.New(0, 0, "root", "b", task.Simultaneous, nil))
	assert.Less(t, id1, id2)
}

func TestSchedulerRootTaskIsOwnParent(t *testing.T) {
	s := New(nil)
	tsk := task.New(0, 0, "root", "a", task.Simultaneous, nil)
	id := s.RegisterTask(tsk)
	assert.Equal(t, id, tsk.ParentID)
}
