package user

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/kernerr"
)

func genKey(t *testing.T) ed25519.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	pub := genKey(t)
	require.NoError(t, reg.Register("alice", pub))

	u, err := reg.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, pub, u.PubKey)
}

func TestLookupMissingUser(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("nobody")
	require.Error(t, err)
	assert.True(t, kernerr.Is(err, kernerr.KindUserNotFound))
}

func TestRegisterNameTaken(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("alice", genKey(t)))

	err := reg.Register("alice", genKey(t))
	require.Error(t, err)
	assert.True(t, kernerr.Is(err, kernerr.KindUserNameTaken))
}

func TestRegisterKeyConflict(t *testing.T) {
	reg := NewRegistry()
	pub := genKey(t)
	require.NoError(t, reg.Register("alice", pub))

	err := reg.Register("bob", pub)
	require.Error(t, err)
	assert.True(t, kernerr.Is(err, kernerr.KindUserKeyConflict))
}
