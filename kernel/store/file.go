package store

import (
	"io"
	"os"

	"github.com/andybalholm/brotli"

	"vnix/kernel/kernerr"
	"vnix/kernel/unit"
)

// LoadFile reads path (expected to hold the canonical text rendering of a
// root Map, the persistent vnix.store format of §6) and seeds the store.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return kernerr.StoreLoadFailed(err)
	}
	u, err := unit.ParseText(string(data))
	if err != nil {
		return kernerr.StoreLoadFailed(err)
	}
	s.SetRoot(u)
	return nil
}

// SaveFile writes the store's canonical text rendering to path.
func (s *Store) SaveFile(path string) error {
	text := s.Root().String()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return kernerr.StoreSaveFailed(err)
	}
	return nil
}

// LoadFileCompressed reads a brotli-compressed snapshot written by
// SaveFileCompressed — the domain-stack checkpoint format alongside the
// plain-text vnix.store file.
func (s *Store) LoadFileCompressed(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return kernerr.StoreLoadFailed(err)
	}
	defer f.Close()

	raw, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		return kernerr.StoreLoadFailed(err)
	}
	u, err := unit.ParseText(string(raw))
	if err != nil {
		return kernerr.StoreLoadFailed(err)
	}
	s.SetRoot(u)
	return nil
}

// SaveFileCompressed writes a brotli-compressed snapshot of the store's
// canonical text rendering.
func (s *Store) SaveFileCompressed(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return kernerr.StoreSaveFailed(err)
	}
	defer f.Close()

	w := brotli.NewWriterLevel(f, brotli.DefaultCompression)
	if _, err := w.Write([]byte(s.Root().String())); err != nil {
		w.Close()
		return kernerr.StoreSaveFailed(err)
	}
	if err := w.Close(); err != nil {
		return kernerr.StoreSaveFailed(err)
	}
	return nil
}
