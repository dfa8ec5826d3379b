package offload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// Start phase steps.
const (
	StepPurchase    wizard.Step = "purchase"
	StepDelivery    wizard.Step = "delivery"
	StepPreReadings wizard.Step = "pre-readings"
	StepReview      wizard.Step = "review"
)

// Complete phase steps. The review step name is shared with the start phase.
const (
	StepPostReadings wizard.Step = "post-readings"
)

// Guard failures.
var (
	ErrNoPurchase         = errors.New("choose the purchase being delivered")
	ErrNoTank             = errors.New("choose the receiving tank")
	ErrNoExpected         = errors.New("enter the expected quantity")
	ErrProductMismatch    = errors.New("the tank holds a different product than the purchase")
	ErrIncompleteDelivery = errors.New("complete the delivery details")
	ErrNoPreDip           = errors.New("enter the tank dip before offloading")
	ErrNoPostDip          = errors.New("enter the tank dip after offloading")
	ErrNoActualQuantity   = errors.New("enter the quantity actually delivered")
)

// deliveryValidator checks stored delivery details. Phones are normalised to
// E.164 on save, so no default region is needed here.
var deliveryValidator = shared.NewValidator("")

// StartFlow is the start phase wizard.
var StartFlow = wizard.NewFlow[StartDraft](StepPurchase, StepDelivery, StepPreReadings, StepReview).
	Label(StepPurchase, "Purchase").
	Label(StepDelivery, "Delivery").
	Label(StepPreReadings, "Readings before").
	Label(StepReview, "Review").
	Guard(StepPurchase, func(d StartDraft) error {
		p, ok := d.Purchase()
		if !ok {
			return ErrNoPurchase
		}
		t, ok := d.Tank()
		if !ok {
			return ErrNoTank
		}
		if !d.ExpectedQuantity.IsPositive() {
			return ErrNoExpected
		}
		if p.Product != "" && t.Product != "" && !strings.EqualFold(p.Product, t.Product) {
			return fmt.Errorf("%w (%s into %s)", ErrProductMismatch, p.Product, t.Product)
		}
		return nil
	}).
	Guard(StepDelivery, func(d StartDraft) error {
		if err := deliveryValidator.Struct(d.Delivery); err != nil {
			return ErrIncompleteDelivery
		}
		return nil
	}).
	Guard(StepPreReadings, func(d StartDraft) error {
		if !d.PreTank.Captured() {
			return ErrNoPreDip
		}
		return nil
	})

// CompleteFlow is the complete phase wizard.
var CompleteFlow = wizard.NewFlow[CompleteDraft](StepPostReadings, StepReview).
	Label(StepPostReadings, "Readings after").
	Label(StepReview, "Review").
	Guard(StepPostReadings, func(d CompleteDraft) error {
		if !d.PostTank.Captured() {
			return ErrNoPostDip
		}
		if !d.ActualQuantity.IsPositive() {
			return ErrNoActualQuantity
		}
		return nil
	})
