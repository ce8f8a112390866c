package task

import "vnix/kernel/registry"

// simultaneousStepper dispatches every (payload, service) pair as its own
// child task on first poll, then round-robin-awaits all of them. The
// task's own result is always None (§4.7).
type simultaneousStepper struct {
	steps     []Step
	author    string
	started   bool
	childIDs  []uint64
	childDone []bool
	remaining int
}

func newSimultaneous(steps []Step, author string) *simultaneousStepper {
	return &simultaneousStepper{steps: steps, author: author}
}

func (s *simultaneousStepper) poll(k registry.KernelHandle) (bool, Result) {
	if !s.started {
		s.started = true
		s.childIDs = make([]uint64, len(s.steps))
		s.childDone = make([]bool, len(s.steps))
		s.remaining = len(s.steps)
		for i, step := range s.steps {
			id, err := k.Send(step.Service, step.Payload, s.author)
			if err != nil {
				// A dispatch failure completes that slot immediately; the
				// overall shape result is still None per §4.7.
				s.childDone[i] = true
				s.remaining--
				continue
			}
			s.childIDs[i] = id
		}
	}

	if s.remaining == 0 {
		return true, Result{}
	}

	for i := range s.steps {
		if s.childDone[i] {
			continue
		}
		_, _, ready, err := k.TakeResult(s.childIDs[i])
		if !ready && err == nil {
			continue
		}
		s.childDone[i] = true
		s.remaining--
	}

	return s.remaining == 0, Result{}
}
