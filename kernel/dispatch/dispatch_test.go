package dispatch

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/envelope"
	"vnix/kernel/registry"
	"vnix/kernel/scheduler"
	"vnix/kernel/unit"
	"vnix/kernel/user"
)

// echoComputation replies with its input payload unchanged, on the first poll.
type echoComputation struct {
	msg  envelope.Msg
	k    registry.KernelHandle
	done bool
}

func (c *echoComputation) Poll() (bool, *envelope.Msg, error) {
	if c.done {
		return true, nil, nil
	}
	c.done = true
	reply, err := c.k.MakeEnvelope("echo", c.msg.Payload)
	if err != nil {
		return true, nil, err
	}
	return true, &reply, nil
}

func echoHandler(msg envelope.Msg, info registry.Info, k registry.KernelHandle) registry.Computation {
	return &echoComputation{msg: msg, k: k}
}

func newHarness(t *testing.T) (*Dispatcher, *Handle, *scheduler.Scheduler, ed25519.PrivateKey) {
	t.Helper()

	users := user.NewRegistry()
	alicePub, alicePriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	require.NoError(t, users.Register("alice", alicePub))

	echoPub, echoPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	require.NoError(t, users.Register("echo", echoPub))

	services := registry.New()
	require.NoError(t, services.Register("echo", "echoes the request payload back", echoHandler))

	sched := scheduler.New(nil)
	d := New(services, users, sched, DefaultConfig())
	h := NewHandle(d, sched, users, map[string]ed25519.PrivateKey{
		"alice": alicePriv,
		"echo":  echoPriv,
	})
	return d, h, sched, alicePriv
}

func runUntilResult(t *testing.T, sched *scheduler.Scheduler, h *Handle, id uint64) envelope.Msg {
	t.Helper()
	for i := 0; i < 20; i++ {
		sched.Tick(h)
		if msg, isNone, ready, err := h.TakeResult(id); ready {
			require.NoError(t, err)
			require.False(t, isNone)
			return msg
		}
	}
	t.Fatal("task never produced a result")
	return envelope.Msg{}
}

func TestDispatchEchoRoundTrip(t *testing.T) {
	_, h, sched, _ := newHarness(t)

	id, err := h.Send("echo", unit.NewInt(42), "alice")
	require.NoError(t, err)

	reply := runUntilResult(t, sched, h, id)
	assert.Equal(t, "echo", reply.Author)
	assert.True(t, reply.Payload.Equal(unit.NewInt(42)))
}

func TestDispatchHelpMetaProtocol(t *testing.T) {
	_, h, sched, _ := newHarness(t)

	id, err := h.Send("echo", unit.Str("help"), "alice")
	require.NoError(t, err)

	reply := runUntilResult(t, sched, h, id)
	m, ok := reply.Payload.(unit.Map)
	require.True(t, ok)
	v, found := m.Get("msg")
	require.True(t, found)
	assert.Equal(t, "echoes the request payload back", string(v.(unit.Str)))
}

func TestDispatchServMetaProtocol(t *testing.T) {
	_, h, sched, _ := newHarness(t)

	id, err := h.Send("echo", unit.Str("serv"), "alice")
	require.NoError(t, err)

	reply := runUntilResult(t, sched, h, id)
	m := reply.Payload.(unit.Map)
	v, _ := m.Get("msg")
	names := v.(unit.List)
	require.Len(t, names, 1)
	assert.Equal(t, "echo", string(names[0].(unit.Str)))
}

func TestDispatchReplayRejected(t *testing.T) {
	d, h, _, priv := newHarness(t)
	env, err := envelope.Make(h.users, "alice", priv, unit.NewInt(1))
	require.NoError(t, err)

	_, err = d.Send("echo", env)
	require.NoError(t, err)

	_, err = d.Send("echo", env)
	require.Error(t, err)
}

func TestDispatchServiceNotFound(t *testing.T) {
	_, h, _, _ := newHarness(t)
	_, err := h.Send("nonexistent", unit.NewInt(1), "alice")
	require.Error(t, err)
}

func TestDispatchUnknownAuthorFails(t *testing.T) {
	_, h, _, _ := newHarness(t)
	_, err := h.Send("echo", unit.NewInt(1), "mallory")
	require.Error(t, err)
}
