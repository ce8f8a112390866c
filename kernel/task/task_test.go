package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/envelope"
	"vnix/kernel/unit"
)

// fakeKernel is a minimal registry.KernelHandle for exercising task shapes
// without a real scheduler/dispatcher.
type fakeKernel struct {
	nextID  uint64
	replies map[uint64]*envelope.Msg // nil value means a None reply
	ready   map[uint64]bool
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{replies: make(map[uint64]*envelope.Msg), ready: make(map[uint64]bool)}
}

func (f *fakeKernel) Send(service string, payload unit.Unit, author string) (uint64, error) {
	f.nextID++
	id := f.nextID
	f.ready[id] = true // resolves on first poll, for test simplicity
	return id, nil
}

func (f *fakeKernel) TakeResult(id uint64) (envelope.Msg, bool, bool, error) {
	if !f.ready[id] {
		return envelope.Msg{}, false, false, nil
	}
	reply, ok := f.replies[id]
	if !ok || reply == nil {
		return envelope.Msg{}, true, true, nil
	}
	return *reply, false, true, nil
}

func (f *fakeKernel) MakeEnvelope(author string, payload unit.Unit) (envelope.Msg, error) {
	return envelope.Msg{Author: author, Payload: payload}, nil
}

func (f *fakeKernel) setReply(id uint64, msg *envelope.Msg) {
	f.replies[id] = msg
}

func TestSimultaneousCompletesWithNone(t *testing.T) {
	k := newFakeKernel()
	tsk := New(1, 1, "root", "demo", Simultaneous, []Step{
		{Payload: unit.NewInt(1), Service: "a"},
		{Payload: unit.NewInt(2), Service: "b"},
	})

	var result Result
	done := false
	for i := 0; i < 10 && !done; i++ {
		done, result = tsk.Poll(k)
	}
	require.True(t, done)
	assert.Nil(t, result.Msg)
}

func TestQueueAdoptsAuthor(t *testing.T) {
	k := newFakeKernel()
	tsk := New(1, 1, "root", "demo", Queue, []Step{
		{Payload: unit.NewInt(1), Service: "a"},
		{Payload: unit.NewInt(2), Service: "b"},
	})

	tsk.Run(k)
	// First dispatch happens on this poll.
	_, _ = tsk.stepper.poll(k)
	k.setReply(1, &envelope.Msg{Author: "alice", Payload: unit.NewInt(9)})

	done := false
	var result Result
	for i := 0; i < 10 && !done; i++ {
		done, result = tsk.stepper.poll(k)
	}
	require.True(t, done)
	assert.Nil(t, result.Msg)
	// The second step was dispatched as the author of the first reply.
	assert.Equal(t, "alice", tsk.stepper.(*queueStepper).author)
}

func TestChainMerge(t *testing.T) {
	k := newFakeKernel()
	m0 := unit.Map{{Key: unit.Str("a"), Value: unit.NewInt(1)}}
	tsk := NewChain(1, 1, "root", "demo", false, m0, []string{"svcA", "svcB"})
	tsk.Run(k)

	// Drive until the first child dispatch, then supply its reply.
	_, _ = tsk.stepper.poll(k) // dispatches svcA (childID 1)
	r1 := unit.Map{{Key: unit.Str("msg"), Value: unit.Map{{Key: unit.Str("b"), Value: unit.NewInt(2)}}}}
	k.setReply(1, &envelope.Msg{Author: "svcA-author", Payload: r1})

	_, _ = tsk.stepper.poll(k) // consumes svcA reply, advances to svcB
	r2 := unit.Map{{Key: unit.Str("msg"), Value: unit.Map{{Key: unit.Str("a"), Value: unit.NewInt(3)}}}}
	k.setReply(2, &envelope.Msg{Author: "svcB-author", Payload: r2}) // svcB will be dispatched as childID 2

	var result Result
	done := false
	for i := 0; i < 10 && !done; i++ {
		done, result = tsk.stepper.poll(k)
	}
	require.True(t, done)
	require.NotNil(t, result.Msg)
	assert.Equal(t, "svcB-author", result.Msg.Author)

	// Testable Property #10: final payload == merge(merge(m0, r1), r2).
	expected := unit.Merge(unit.Merge(m0, r1), r2)
	assert.True(t, result.Msg.Payload.Equal(expected), "got %s", result.Msg.Payload.String())
}

func TestChainTerminatesOnNoneReply(t *testing.T) {
	k := newFakeKernel()
	m0 := unit.NewInt(1)
	tsk := NewChain(1, 1, "root", "demo", false, m0, []string{"svcA"})
	tsk.Run(k)

	_, _ = tsk.stepper.poll(k) // dispatches svcA
	k.setReply(1, nil)         // None reply

	done := false
	var result Result
	for i := 0; i < 10 && !done; i++ {
		done, result = tsk.stepper.poll(k)
	}
	require.True(t, done)
	assert.Nil(t, result.Msg)
	assert.Nil(t, result.Err)
}
