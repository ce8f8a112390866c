// Package user implements the user registry Invariant 1 depends on: an
// envelope can only be dispatched if its author matches a registered user.
package user

import (
	"bytes"
	"crypto/ed25519"
	"sync"

	"vnix/kernel/kernerr"
)

// Usr is a registered author identity.
type Usr struct {
	Name   string
	PubKey ed25519.PublicKey
}

// Registry is the process-wide name -> Usr mapping.
type Registry struct {
	mu    sync.Mutex
	byKey map[string]Usr
}

// NewRegistry returns an empty user registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Usr)}
}

// Register adds a new user. It fails with UserNameTaken if the name is
// already registered, and UserKeyConflict if the same public key is already
// registered under a different name.
func (r *Registry) Register(name string, pub ed25519.PublicKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[name]; exists {
		return kernerr.UserNameTaken(name)
	}
	for otherName, u := range r.byKey {
		if otherName != name && bytes.Equal(u.PubKey, pub) {
			return kernerr.UserKeyConflict(name)
		}
	}
	r.byKey[name] = Usr{Name: name, PubKey: pub}
	return nil
}

// Lookup returns the registered user by name, or UserNotFound.
func (r *Registry) Lookup(name string) (Usr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byKey[name]
	if !ok {
		return Usr{}, kernerr.UserNotFound(name)
	}
	return u, nil
}
