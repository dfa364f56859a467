package chain

import "caustic/internal/nonlinear"

// StepResult pairs a completed step with where its outputs live.
type StepResult struct {
	Name      string
	Result    *nonlinear.Result
	OutputDir string
}

// History is the append-only record of completed steps, in execution order.
// Builders of later steps read it; nothing ever removes or rewrites an
// entry.
type History struct {
	steps []StepResult
}

func NewHistory() *History {
	return &History{}
}

// Append records a completed step.
func (h *History) Append(sr StepResult) {
	h.steps = append(h.steps, sr)
}

// Result returns the completed step with the given name.
func (h *History) Result(name string) (StepResult, bool) {
	for _, sr := range h.steps {
		if sr.Name == name {
			return sr, true
		}
	}
	return StepResult{}, false
}

// Last returns the most recently completed step.
func (h *History) Last() (StepResult, bool) {
	if len(h.steps) == 0 {
		return StepResult{}, false
	}
	return h.steps[len(h.steps)-1], true
}

func (h *History) Len() int {
	return len(h.steps)
}

// Names returns the completed step names in execution order.
func (h *History) Names() []string {
	names := make([]string, len(h.steps))
	for i, sr := range h.steps {
		names[i] = sr.Name
	}
	return names
}
