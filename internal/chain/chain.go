// Package chain executes an ordered list of search steps. Each step builds
// its model, analysis and settings from the results accumulated so far, so
// a later step can start from an earlier posterior or derive thresholds
// from an earlier fit. Steps whose output directory already carries a
// completion marker are loaded instead of re-run, which makes a whole chain
// resumable by simply running it again.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"caustic/internal/logging"
	"caustic/internal/model"
	"caustic/internal/nonlinear"
)

// BuildFunc assembles one step from the chain history. The returned
// settings carry everything but the step name, which the runner fills in.
type BuildFunc func(ctx context.Context, h *History) (*model.Spec, nonlinear.Analysis, nonlinear.Settings, error)

// Step is one link of a chain.
type Step struct {
	Name  string
	Build BuildFunc
}

// StepError reports which step halted the chain. Failed steps are never
// retried; the partial output they leave behind is picked up on the next
// run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// EventKind labels runner progress events.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventResumed   EventKind = "resumed"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is a progress notification from a running chain.
type Event struct {
	RunID     string
	Step      string
	Kind      EventKind
	OutputDir string
	Err       error
}

// Runner executes chains. Events, when set, receives one event per step
// transition; sends block, so give the channel capacity or drain it from
// another goroutine. NewSearch resolves sampler names and defaults to the
// package factory.
type Runner struct {
	Events    chan<- Event
	NewSearch func(name string) (nonlinear.Search, error)
}

// Run executes the steps in order and returns the history of completed
// steps. On failure the history holds every step that completed before the
// halt.
func (r *Runner) Run(ctx context.Context, steps []Step) (*History, error) {
	runID := uuid.NewString()
	history := NewHistory()
	timer := logging.StartTimer(logging.CategoryChain, "chain run")
	logging.Chain("run %s: %d steps", runID, len(steps))

	for i, step := range steps {
		if step.Name == "" {
			return history, &StepError{Step: fmt.Sprintf("#%d", i), Err: errors.New("step has no name")}
		}
		if _, dup := history.Result(step.Name); dup {
			return history, &StepError{Step: step.Name, Err: errors.New("duplicate step name")}
		}
		if err := ctx.Err(); err != nil {
			return history, &StepError{Step: step.Name, Err: err}
		}

		spec, analysis, set, err := step.Build(ctx, history)
		if err != nil {
			r.emit(Event{RunID: runID, Step: step.Name, Kind: EventFailed, Err: err})
			return history, &StepError{Step: step.Name, Err: fmt.Errorf("build: %w", err)}
		}
		// The step name names the output directory level between the path
		// prefix and the identifier.
		set.Name = step.Name

		newSearch := r.NewSearch
		if newSearch == nil {
			newSearch = NewSearch
		}
		search, err := newSearch(set.Sampler)
		if err != nil {
			r.emit(Event{RunID: runID, Step: step.Name, Kind: EventFailed, Err: err})
			return history, &StepError{Step: step.Name, Err: err}
		}

		st, id, err := nonlinear.OpenRun(spec, search.Name(), set)
		if err != nil {
			r.emit(Event{RunID: runID, Step: step.Name, Kind: EventFailed, Err: err})
			return history, &StepError{Step: step.Name, Err: err}
		}

		kind := EventStarted
		if st.Completed() {
			kind = EventResumed
		}
		r.emit(Event{RunID: runID, Step: step.Name, Kind: kind, OutputDir: st.Dir()})
		logging.Chain("run %s: step %s %s (%s)", runID, step.Name, kind, id)

		res, err := search.Fit(ctx, spec, analysis, set)
		if err != nil {
			r.emit(Event{RunID: runID, Step: step.Name, Kind: EventFailed, OutputDir: st.Dir(), Err: err})
			logging.ChainError("run %s: step %s failed: %v", runID, step.Name, err)
			return history, &StepError{Step: step.Name, Err: err}
		}

		history.Append(StepResult{Name: step.Name, Result: res, OutputDir: st.Dir()})
		r.emit(Event{RunID: runID, Step: step.Name, Kind: EventCompleted, OutputDir: st.Dir()})
		logging.Chain("run %s: step %s completed, max logL %.4f", runID, step.Name, res.MaxLogLikelihood)
	}

	timer.StopWithInfo()
	return history, nil
}

func (r *Runner) emit(ev Event) {
	if r.Events != nil {
		r.Events <- ev
	}
}

// PositionsThreshold derives the positions threshold a later step should
// use from an earlier result: factor times the positions_spread quantity
// the analysis derived, clamped from below by floor. The floor wins over an
// over-confident spread, and over a result that derived no spread at all.
func PositionsThreshold(res *nonlinear.Result, factor, floor float64) float64 {
	v := factor * res.DerivedValue("positions_spread")
	if v < floor {
		return floor
	}
	return v
}
