package task

import (
	"vnix/kernel/registry"
	"vnix/kernel/unit"
)

// chainStepper feeds one payload through a list of services, structurally
// merging each reply back into the running accumulator (§4.7). ChainLoop
// restarts the body forever, yielding between iterations.
type chainStepper struct {
	services []string
	author   string
	loop     bool

	acc        unit.Unit
	index      int
	dispatched bool
	childID    uint64
	terminated bool
}

func newChainStepper(initial unit.Unit, services []string, author string, loop bool) *chainStepper {
	return &chainStepper{acc: initial, services: services, author: author, loop: loop}
}

func (s *chainStepper) poll(k registry.KernelHandle) (bool, Result) {
	if s.terminated {
		return true, Result{}
	}

	if s.index >= len(s.services) {
		if s.loop {
			s.index = 0
			return false, Result{}
		}
		msg, err := k.MakeEnvelope(s.author, s.acc)
		if err != nil {
			return true, Result{Err: err}
		}
		return true, Result{Msg: &msg}
	}

	service := s.services[s.index]
	if !s.dispatched {
		id, err := k.Send(service, s.acc, s.author)
		if err != nil {
			s.terminated = true
			return true, Result{Err: err}
		}
		s.childID = id
		s.dispatched = true
		return false, Result{}
	}

	reply, isNone, ready, err := k.TakeResult(s.childID)
	if !ready && err == nil {
		return false, Result{}
	}
	if err != nil {
		s.terminated = true
		return true, Result{Err: err}
	}
	if isNone {
		s.terminated = true
		return true, Result{}
	}

	s.acc = unit.Merge(s.acc, reply.Payload)
	s.author = reply.Author
	s.index++
	s.dispatched = false
	return false, Result{}
}
