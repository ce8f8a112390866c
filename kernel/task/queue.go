package task

import "vnix/kernel/registry"

// queueStepper runs its (payload, service) pairs in order: later steps see
// the author-update of earlier ones but not a payload merge. The task's
// own result is always None (§4.7).
type queueStepper struct {
	steps      []Step
	author     string
	index      int
	dispatched bool
	childID    uint64
}

func newQueueStepper(steps []Step, author string) *queueStepper {
	return &queueStepper{steps: steps, author: author}
}

func (s *queueStepper) poll(k registry.KernelHandle) (bool, Result) {
	for s.index < len(s.steps) {
		step := s.steps[s.index]
		if !s.dispatched {
			id, err := k.Send(step.Service, step.Payload, s.author)
			if err != nil {
				s.index++
				s.dispatched = false
				continue
			}
			s.childID = id
			s.dispatched = true
			return false, Result{}
		}

		msg, isNone, ready, err := k.TakeResult(s.childID)
		if !ready && err == nil {
			return false, Result{}
		}
		if err == nil && !isNone {
			s.author = msg.Author
		}
		s.index++
		s.dispatched = false
	}
	return true, Result{}
}
