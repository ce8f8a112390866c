package dispatch

import (
	"crypto/ed25519"
	"sync"

	"vnix/kernel/envelope"
	"vnix/kernel/kernerr"
	"vnix/kernel/scheduler"
	"vnix/kernel/unit"
	"vnix/kernel/user"
)

// Handle is the concrete registry.KernelHandle a running task or handler
// gets back into the kernel: it signs on behalf of the keystore's
// identities and routes every Send back through the Dispatcher, so an
// internally-originated message is verified, replay-guarded and
// rate-limited exactly like one that arrived from outside the process.
type Handle struct {
	dispatcher *Dispatcher
	sched      *scheduler.Scheduler
	users      *user.Registry

	mu       sync.Mutex
	keystore map[string]ed25519.PrivateKey
}

// NewHandle builds a Handle. keystore maps a registered user or service
// name to the private key the kernel signs on its behalf with — §9's
// "single process-wide structure ... passed by handle" guidance for the
// signing material Chain/ChainLoop re-signing and the help meta-protocol
// both need centrally.
func NewHandle(d *Dispatcher, sched *scheduler.Scheduler, users *user.Registry, keystore map[string]ed25519.PrivateKey) *Handle {
	if keystore == nil {
		keystore = make(map[string]ed25519.PrivateKey)
	}
	return &Handle{dispatcher: d, sched: sched, users: users, keystore: keystore}
}

// AddKey registers a signing identity, for boot glue and tests.
func (h *Handle) AddKey(name string, priv ed25519.PrivateKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keystore[name] = priv
}

func (h *Handle) privateKey(author string) (ed25519.PrivateKey, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	priv, ok := h.keystore[author]
	if !ok {
		return nil, kernerr.UserNotFound(author)
	}
	return priv, nil
}

// MakeEnvelope signs payload as author.
func (h *Handle) MakeEnvelope(author string, payload unit.Unit) (envelope.Msg, error) {
	priv, err := h.privateKey(author)
	if err != nil {
		return envelope.Msg{}, err
	}
	return envelope.Make(h.users, author, priv, payload)
}

// Send signs payload as author and hands it to the dispatcher, same as an
// externally-arriving envelope.
func (h *Handle) Send(serviceName string, payload unit.Unit, author string) (uint64, error) {
	env, err := h.MakeEnvelope(author, payload)
	if err != nil {
		return 0, err
	}
	return h.dispatcher.Send(serviceName, env)
}

// TakeResult adapts the scheduler's *envelope.Msg/ready/err result shape to
// registry.KernelHandle's (result, isNone, ready, err) shape: a task that
// completed with no reply (None) is reported as isNone rather than as
// "not ready yet".
func (h *Handle) TakeResult(taskID uint64) (envelope.Msg, bool, bool, error) {
	msg, ready, err := h.sched.TakeResult(taskID)
	if !ready {
		return envelope.Msg{}, false, false, nil
	}
	if err != nil {
		return envelope.Msg{}, false, true, err
	}
	if msg == nil {
		return envelope.Msg{}, true, true, nil
	}
	return *msg, false, true, nil
}
