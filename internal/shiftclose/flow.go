package shiftclose

import (
	"errors"

	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// Wizard steps in order.
const (
	StepValidation  wizard.Step = "validation"
	StepPumps       wizard.Step = "pumps"
	StepTanks       wizard.Step = "tanks"
	StepCollections wizard.Step = "collections"
	StepSummary     wizard.Step = "summary"
)

// Guard failures.
var (
	ErrShiftNotClosable = errors.New("shift is not open or active")
	ErrBlockingIssues   = errors.New("resolve the blocking pre-closing issues first")
	ErrCloseRefused     = errors.New("the backend does not allow this shift to be closed yet; run the check again")
	ErrNoPumpReadings   = errors.New("enter a closing meter reading for at least one pump")
	ErrNoTankReadings   = errors.New("enter a closing dip for at least one tank")
	ErrNoCollections    = errors.New("enter the amount collected for at least one island")
)

// Flow is the shift closing wizard.
var Flow = wizard.NewFlow[Draft](StepValidation, StepPumps, StepTanks, StepCollections, StepSummary).
	Label(StepValidation, "Pre-closing check").
	Label(StepPumps, "Pump readings").
	Label(StepTanks, "Tank dips").
	Label(StepCollections, "Collections").
	Label(StepSummary, "Summary").
	Guard(StepValidation, func(d Draft) error {
		if !d.Context.Shift.Status.Closable() {
			return ErrShiftNotClosable
		}
		if len(d.Check.Blocking()) > 0 {
			return ErrBlockingIssues
		}
		if !d.Check.CanClose {
			return ErrCloseRefused
		}
		return nil
	}).
	Guard(StepPumps, func(d Draft) error {
		for _, p := range d.Pumps {
			if p.Captured() {
				return nil
			}
		}
		return ErrNoPumpReadings
	}).
	Guard(StepTanks, func(d Draft) error {
		for _, t := range d.Tanks {
			if t.Captured() {
				return nil
			}
		}
		return ErrNoTankReadings
	}).
	Guard(StepCollections, func(d Draft) error {
		for _, c := range d.Collections {
			if !c.Amounts.IsZero() {
				return nil
			}
		}
		return ErrNoCollections
	})
