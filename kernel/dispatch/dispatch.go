// Package dispatch implements the send path of §4.6: rate-limit the claimed
// author, verify the envelope, reject replays, resolve the help
// meta-protocol, and otherwise hand the message to its registered service
// as a new task.
package dispatch

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"vnix/kernel/envelope"
	"vnix/kernel/kernerr"
	"vnix/kernel/registry"
	"vnix/kernel/scheduler"
	"vnix/kernel/task"
	"vnix/kernel/unit"
	"vnix/kernel/user"
)

// Dispatcher is the process-wide send path. It is safe for concurrent use,
// though the scheduler it feeds is itself single-threaded.
type Dispatcher struct {
	services *registry.Registry
	users    *user.Registry
	sched    *scheduler.Scheduler

	mu       sync.Mutex
	seen     *bloom.BloomFilter
	seenExact map[string]struct{} // exact check behind a bloom hit, never false-rejects

	limiterStore store.Store
	limiter      *limiter.TokenBucket
}

// Config tunes the replay-guard and rate-limiter sizing. Zero value yields
// reasonable defaults.
type Config struct {
	ExpectedEnvelopes int     // bloom filter sizing hint
	FalsePositiveRate float64 // bloom filter false-positive rate
	RatePerSecond     int64   // token bucket refill rate
	RateBurst         int64   // token bucket burst size
}

// DefaultConfig mirrors the sizing the teacher's gossip replay-guard used.
func DefaultConfig() Config {
	return Config{
		ExpectedEnvelopes: 100000,
		FalsePositiveRate: 0.01,
		RatePerSecond:     50,
		RateBurst:         100,
	}
}

// New builds a Dispatcher over an already-populated service/user registry
// and a scheduler to feed resolved invocations into.
func New(services *registry.Registry, users *user.Registry, sched *scheduler.Scheduler, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.ExpectedEnvelopes == 0 {
		cfg.ExpectedEnvelopes = def.ExpectedEnvelopes
	}
	if cfg.FalsePositiveRate == 0 {
		cfg.FalsePositiveRate = def.FalsePositiveRate
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = def.RateBurst
	}

	limiterStore := store.NewMemoryStore(time.Minute)
	tb, _ := limiter.NewTokenBucket(limiter.Config{
		Rate:     cfg.RatePerSecond,
		Duration: time.Second,
		Burst:    cfg.RateBurst,
	}, limiterStore)

	return &Dispatcher{
		services:     services,
		users:        users,
		sched:        sched,
		seen:         bloom.NewWithEstimates(uint(cfg.ExpectedEnvelopes), cfg.FalsePositiveRate),
		seenExact:    make(map[string]struct{}),
		limiterStore: limiterStore,
		limiter:      tb,
	}
}

// alreadySeen reports whether hash was dispatched before. A bloom hit falls
// through to the exact set so a false positive never rejects a fresh
// envelope; a bloom miss is conclusive.
func (d *Dispatcher) alreadySeen(hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.seen.Test([]byte(hash)) {
		return false
	}
	_, exact := d.seenExact[hash]
	return exact
}

func (d *Dispatcher) markSeen(hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Add([]byte(hash))
	d.seenExact[hash] = struct{}{}
}

// Send implements §4.6: rate limit -> verify -> replay guard -> registry
// lookup -> help resolution -> task registration. It returns the id of the
// task the scheduler will drive, or an error if the envelope never reaches
// the registry.
func (d *Dispatcher) Send(serviceName string, env envelope.Msg) (uint64, error) {
	// Rate-limit on the claimed author ahead of signature verification: a
	// flood of forged envelopes is rejected by the token bucket before it
	// ever reaches the more expensive ed25519 check.
	if d.limiter != nil && !d.limiter.Allow(env.Author) {
		return 0, kernerr.RateLimited(env.Author)
	}

	if err := envelope.Verify(d.users, env); err != nil {
		return 0, err
	}

	if d.alreadySeen(env.Hash) {
		return 0, kernerr.ReplayRejected(env.Hash)
	}

	entry, err := d.services.Lookup(serviceName)
	if err != nil {
		return 0, err
	}

	d.markSeen(env.Hash)

	info := registry.Info{Name: entry.Name, Help: entry.Help}

	handler := entry.Handler
	if reply, resolved := registry.ResolveMeta(env.Payload, entry.Help, d.services.Names()); resolved {
		handler = metaHandler(entry.Name, reply)
	}

	return d.registerInvocation(env, info, handler)
}

func (d *Dispatcher) registerInvocation(env envelope.Msg, info registry.Info, h registry.Handler) (uint64, error) {
	t := task.NewInvocation(0, 0, env, info, h)
	return d.sched.RegisterTask(t), nil
}

// metaHandler wraps an already-resolved help/serv reply as a one-shot
// Handler so it flows through the same Invocation task machinery as a
// normal service call. The reply is signed as the service itself, not the
// caller: the kernel answers on the service's behalf, it never holds a
// caller's private key.
func metaHandler(serviceName string, reply unit.Unit) registry.Handler {
	return func(msg envelope.Msg, info registry.Info, k registry.KernelHandle) registry.Computation {
		return &immediateComputation{reply: reply, author: serviceName, k: k}
	}
}

type immediateComputation struct {
	reply   unit.Unit
	author  string
	k       registry.KernelHandle
	yielded bool
	done    bool
}

// Poll yields once before producing the reply (§3/kern.rs's send(): the
// meta-protocol reply is a resumable computation that yields before
// returning, not an immediate value).
func (c *immediateComputation) Poll() (bool, *envelope.Msg, error) {
	if c.done {
		return true, nil, nil
	}
	if !c.yielded {
		c.yielded = true
		return false, nil, nil
	}
	c.done = true
	msg, err := c.k.MakeEnvelope(c.author, c.reply)
	if err != nil {
		return true, nil, err
	}
	return true, &msg, nil
}
