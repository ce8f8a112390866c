package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/envelope"
	"vnix/kernel/kernerr"
	"vnix/kernel/unit"
)

func noopHandler(msg envelope.Msg, info Info, k KernelHandle) Computation { return nil }

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("echo", "echoes input", noopHandler))

	e, err := r.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", e.Name)
	assert.Equal(t, "echoes input", e.Help)
}

func TestLookupMissingService(t *testing.T) {
	r := New()
	_, err := r.Lookup("ghost")
	require.Error(t, err)
	assert.True(t, kernerr.Is(err, kernerr.KindServiceNotFound))
}

func TestRegisterDuplicateService(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("echo", "", noopHandler))
	err := r.Register("echo", "", noopHandler)
	require.Error(t, err)
	assert.True(t, kernerr.Is(err, kernerr.KindServiceAlreadyReg))
}

func TestNamesPreservesRegistrationOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("b", "", noopHandler))
	require.NoError(t, r.Register("a", "", noopHandler))
	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestResolveMetaHelp(t *testing.T) {
	reply, resolved := ResolveMeta(unit.Str("help"), "it echoes", []string{"echo"})
	require.True(t, resolved)
	m := reply.(unit.Map)
	v, ok := m.Get("msg")
	require.True(t, ok)
	assert.Equal(t, "it echoes", string(v.(unit.Str)))
}

func TestResolveMetaInfoViaMapHelpKey(t *testing.T) {
	payload := unit.Map{{Key: unit.Str("help"), Value: unit.Str("info")}}
	reply, resolved := ResolveMeta(payload, "it echoes", nil)
	require.True(t, resolved)
	m := reply.(unit.Map)
	v, _ := m.Get("msg")
	assert.Equal(t, "it echoes", string(v.(unit.Str)))
}

func TestResolveMetaServ(t *testing.T) {
	reply, resolved := ResolveMeta(unit.Str("serv"), "", []string{"a", "b"})
	require.True(t, resolved)
	m := reply.(unit.Map)
	v, _ := m.Get("msg")
	names := v.(unit.List)
	require.Len(t, names, 2)
	assert.Equal(t, "a", string(names[0].(unit.Str)))
	assert.Equal(t, "b", string(names[1].(unit.Str)))
}

func TestResolveMetaNotResolvedForOrdinaryPayload(t *testing.T) {
	_, resolved := ResolveMeta(unit.NewInt(1), "help text", []string{"echo"})
	assert.False(t, resolved)
}
