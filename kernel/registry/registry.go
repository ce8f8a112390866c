// Package registry implements the service registry of §4.5: a process-wide
// name -> handler mapping, populated at boot and read-mostly thereafter.
package registry

import (
	"sync"

	"vnix/kernel/envelope"
	"vnix/kernel/kernerr"
	"vnix/kernel/unit"
)

// Info is the read-only view of a registry a handler receives — it can look
// itself up by name but cannot register new services mid-flight.
type Info struct {
	Name string
	Help string
}

// Computation is the resumable computation a handler produces: Poll is
// driven repeatedly by the scheduler until Done is true. See kernel/task
// for the design rationale (explicit state machine, not goroutines).
type Computation interface {
	Poll() (done bool, msg *envelope.Msg, err error)
}

// Handler is the capability shape of §9: a pure function from an envelope
// and registry/kernel context to a resumable computation of a reply.
type Handler func(msg envelope.Msg, info Info, k KernelHandle) Computation

// KernelHandle is the narrow surface a handler gets back into the running
// kernel: enough to dispatch child messages, collect their results and sign
// replies, without exposing the scheduler's internals. It gives no access to
// drivers or a logger. Concrete kernel packages
// implement it; it lives here to avoid an import cycle with dispatch/task.
type KernelHandle interface {
	Send(serviceName string, payload unit.Unit, author string) (taskID uint64, err error)
	TakeResult(taskID uint64) (result envelope.Msg, isNone bool, ready bool, err error)
	// MakeEnvelope signs payload as author using the keystore the boot glue
	// populated alongside the user registry. Task shapes re-sign on behalf
	// of whichever author last replied (§4.7), which requires the kernel
	// itself — not the caller — to hold the signing keys.
	MakeEnvelope(author string, payload unit.Unit) (envelope.Msg, error)
}

// Entry is one registered service.
type Entry struct {
	Name    string
	Help    string
	Handler Handler
}

// Registry is the process-wide service table.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string
}

// New returns an empty service registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a service. Fails with ServiceAlreadyRegistered on a
// duplicate name (Invariant 3: a service name occurs at most once).
func (r *Registry) Register(name, help string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return kernerr.ServiceAlreadyRegistered(name)
	}
	r.entries[name] = Entry{Name: name, Help: help, Handler: h}
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the registered entry, or ServiceNotFound.
func (r *Registry) Lookup(name string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return Entry{}, kernerr.ServiceNotFound(name)
	}
	return e, nil
}

// Names returns all registered service names in registration order, the
// payload of the "serv" meta-protocol response.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
