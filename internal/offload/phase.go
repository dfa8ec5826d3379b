package offload

import (
	"context"
	"errors"

	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// stepper is implemented by pointers to the phase drafts.
type stepper[D any] interface {
	*D
	CurrentStep() wizard.Step
	SetStep(wizard.Step)
}

// phase binds a draft type to its flow and the draft store.
type phase[D any, P stepper[D]] struct {
	flow  *wizard.Flow[D]
	store DraftStore
}

func (ph phase[D, P]) load(ctx context.Context, sessionID, slot string) (D, error) {
	var d D
	if err := ph.store.Load(ctx, sessionID, slot, &d); err != nil {
		var zero D
		return zero, err
	}
	return d, nil
}

// update loads the draft, applies fn and saves it. Field errors still save
// so that entered values survive the re-render.
func (ph phase[D, P]) update(ctx context.Context, sessionID, slot string, fn func(P) error) (D, error) {
	d, err := ph.load(ctx, sessionID, slot)
	if err != nil {
		return d, err
	}
	ferr := fn(P(&d))
	var fieldErrs FieldErrors
	if ferr != nil && !errors.As(ferr, &fieldErrs) {
		return d, ferr
	}
	if err := ph.store.Save(ctx, sessionID, slot, d); err != nil {
		var zero D
		return zero, err
	}
	return d, ferr
}

func (ph phase[D, P]) next(ctx context.Context, sessionID, slot string) (D, error) {
	return ph.update(ctx, sessionID, slot, func(d P) error {
		step, err := ph.flow.Next(d.CurrentStep(), *d)
		if err != nil {
			return err
		}
		d.SetStep(step)
		return nil
	})
}

func (ph phase[D, P]) back(ctx context.Context, sessionID, slot string) (D, error) {
	return ph.update(ctx, sessionID, slot, func(d P) error {
		step, err := ph.flow.Back(d.CurrentStep())
		if err != nil {
			return err
		}
		d.SetStep(step)
		return nil
	})
}

func (ph phase[D, P]) goTo(ctx context.Context, sessionID, slot string, target wizard.Step) (D, error) {
	return ph.update(ctx, sessionID, slot, func(d P) error {
		step, err := ph.flow.GoTo(d.CurrentStep(), target)
		if err != nil {
			return err
		}
		d.SetStep(step)
		return nil
	})
}

// ready re-runs every guard before the last step.
func (ph phase[D, P]) ready(d D) error {
	if P(&d).CurrentStep() != ph.flow.Last() {
		return wizard.ErrInvalidTransition
	}
	for _, step := range ph.flow.Steps() {
		if step == ph.flow.Last() {
			break
		}
		if err := ph.flow.Check(step, d); err != nil {
			return err
		}
	}
	return nil
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return "offload: invalid fields"
}

func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
