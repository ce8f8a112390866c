package task

import (
	"vnix/kernel/envelope"
	"vnix/kernel/registry"
)

// invocationStepper is the base-case stepper: one handler invocation,
// driven to completion via registry.Computation.Poll.
type invocationStepper struct {
	msg     envelope.Msg
	info    registry.Info
	handler registry.Handler
	comp    registry.Computation
}

func newInvocationStepper(msg envelope.Msg, info registry.Info, h registry.Handler) *invocationStepper {
	return &invocationStepper{msg: msg, info: info, handler: h}
}

func (s *invocationStepper) poll(k registry.KernelHandle) (bool, Result) {
	if s.comp == nil {
		s.comp = s.handler(s.msg, s.info, k)
	}
	done, msg, err := s.comp.Poll()
	if !done {
		return false, Result{}
	}
	return true, Result{Msg: msg, Err: err}
}
