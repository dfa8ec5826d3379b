// Package wizard models linear multi-step forms as a finite-state machine.
// A flow only moves forward one step at a time after the current step's
// guard accepts the state, moves back one step freely, and may jump
// backwards to any earlier step. Every other transition is rejected.
package wizard

import (
	"errors"
	"fmt"
)

// Step names a wizard state.
type Step string

var (
	// ErrInvalidTransition is returned for forward jumps and moves past the ends.
	ErrInvalidTransition = errors.New("wizard: invalid transition")
	// ErrUnknownStep is returned for steps not registered in the flow.
	ErrUnknownStep = errors.New("wizard: unknown step")
	// ErrGuardRejected matches any GuardError.
	ErrGuardRejected = errors.New("wizard: step requirements not met")
)

// GuardError reports why a step cannot be left yet.
type GuardError struct {
	Step   Step
	Reason error
}

func (e *GuardError) Error() string {
	return e.Reason.Error()
}

func (e *GuardError) Unwrap() error {
	return e.Reason
}

// Is lets errors.Is(err, ErrGuardRejected) match guard failures.
func (e *GuardError) Is(target error) bool {
	return target == ErrGuardRejected
}

// Flow is an immutable step sequence with optional exit guards.
type Flow[S any] struct {
	steps  []Step
	index  map[Step]int
	labels map[Step]string
	guards map[Step]func(S) error
}

// NewFlow registers steps in order. It panics on an empty or duplicated
// sequence since flows are declared at package init.
func NewFlow[S any](steps ...Step) *Flow[S] {
	if len(steps) == 0 {
		panic("wizard: flow requires at least one step")
	}
	f := &Flow[S]{
		steps:  append([]Step(nil), steps...),
		index:  make(map[Step]int, len(steps)),
		labels: make(map[Step]string, len(steps)),
		guards: make(map[Step]func(S) error),
	}
	for i, s := range steps {
		if _, dup := f.index[s]; dup {
			panic(fmt.Sprintf("wizard: duplicate step %q", s))
		}
		f.index[s] = i
	}
	return f
}

// Label sets the human readable name of a step.
func (f *Flow[S]) Label(step Step, label string) *Flow[S] {
	f.labels[step] = label
	return f
}

// Guard installs the check that must pass before leaving step forwards.
func (f *Flow[S]) Guard(step Step, guard func(S) error) *Flow[S] {
	f.guards[step] = guard
	return f
}

// First returns the initial step.
func (f *Flow[S]) First() Step { return f.steps[0] }

// Last returns the terminal step.
func (f *Flow[S]) Last() Step { return f.steps[len(f.steps)-1] }

// Steps returns a copy of the sequence.
func (f *Flow[S]) Steps() []Step { return append([]Step(nil), f.steps...) }

// Has reports whether step belongs to the flow.
func (f *Flow[S]) Has(step Step) bool {
	_, ok := f.index[step]
	return ok
}

// Parse converts a raw value (for example a URL segment) into a step.
func (f *Flow[S]) Parse(raw string) (Step, error) {
	step := Step(raw)
	if !f.Has(step) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, raw)
	}
	return step, nil
}

// Check runs the exit guard of step without moving.
func (f *Flow[S]) Check(step Step, state S) error {
	if !f.Has(step) {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if guard := f.guards[step]; guard != nil {
		if err := guard(state); err != nil {
			return &GuardError{Step: step, Reason: err}
		}
	}
	return nil
}

// Next advances one step once the current step's guard passes.
func (f *Flow[S]) Next(current Step, state S) (Step, error) {
	i, ok := f.index[current]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownStep, current)
	}
	if i == len(f.steps)-1 {
		return current, fmt.Errorf("%w: %q is the last step", ErrInvalidTransition, current)
	}
	if err := f.Check(current, state); err != nil {
		return current, err
	}
	return f.steps[i+1], nil
}

// Back retreats one step.
func (f *Flow[S]) Back(current Step) (Step, error) {
	i, ok := f.index[current]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownStep, current)
	}
	if i == 0 {
		return current, fmt.Errorf("%w: %q is the first step", ErrInvalidTransition, current)
	}
	return f.steps[i-1], nil
}

// GoTo moves to target when it is the current step or an earlier one.
func (f *Flow[S]) GoTo(current, target Step) (Step, error) {
	i, ok := f.index[current]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownStep, current)
	}
	j, ok := f.index[target]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownStep, target)
	}
	if j > i {
		return current, fmt.Errorf("%w: cannot jump from %q to %q", ErrInvalidTransition, current, target)
	}
	return target, nil
}

// StepView describes one entry of a progress indicator.
type StepView struct {
	Step     Step
	Label    string
	Number   int
	Done     bool
	Current  bool
	Editable bool
}

// Progress renders the flow relative to current for templates.
func (f *Flow[S]) Progress(current Step) []StepView {
	ci := f.index[current]
	views := make([]StepView, 0, len(f.steps))
	for i, s := range f.steps {
		label := f.labels[s]
		if label == "" {
			label = string(s)
		}
		views = append(views, StepView{
			Step:     s,
			Label:    label,
			Number:   i + 1,
			Done:     i < ci,
			Current:  i == ci,
			Editable: i < ci,
		})
	}
	return views
}
