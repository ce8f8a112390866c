package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vnix/kernel/unit"
)

func TestStoreRoundTrip(t *testing.T) {
	s := New()
	err := s.Save(unit.Ref{"a", "b"}, unit.NewInt(5))
	require.NoError(t, err)

	v, err := s.Load(unit.Ref{"a", "b"})
	require.NoError(t, err)
	assert.True(t, v.Equal(unit.NewInt(5)))

	v2, err := s.Load(unit.Ref{"a"})
	require.NoError(t, err)
	assert.True(t, v2.Equal(unit.Map{{Key: unit.Str("b"), Value: unit.NewInt(5)}}))
}

func TestStoreLoadMissing(t *testing.T) {
	s := New()
	_, err := s.Load(unit.Ref{"nope"})
	assert.Error(t, err)
}

func TestStoreFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vnix.store")

	s := New()
	require.NoError(t, s.Save(unit.Ref{"a"}, unit.NewInt(1)))
	require.NoError(t, s.SaveFile(path))

	s2 := New()
	require.NoError(t, s2.LoadFile(path))
	v, err := s2.Load(unit.Ref{"a"})
	require.NoError(t, err)
	assert.True(t, v.Equal(unit.NewInt(1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestStoreCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vnix.store.br")

	s := New()
	require.NoError(t, s.Save(unit.Ref{"x"}, unit.Str("hi")))
	require.NoError(t, s.SaveFileCompressed(path))

	s2 := New()
	require.NoError(t, s2.LoadFileCompressed(path))
	v, err := s2.Load(unit.Ref{"x"})
	require.NoError(t, err)
	assert.True(t, v.Equal(unit.Str("hi")))
}
