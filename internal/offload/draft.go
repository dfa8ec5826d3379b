package offload

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/reconcile"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// StartDraft is the form state of the start phase.
type StartDraft struct {
	StationID        int64           `json:"station_id"`
	Step             wizard.Step     `json:"step"`
	IdempotencyKey   string          `json:"idempotency_key"`
	StartedAt        time.Time       `json:"started_at"`
	Options          StartOptions    `json:"options"`
	PurchaseID       int64           `json:"purchase_id"`
	TankID           int64           `json:"tank_id"`
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	Delivery         Delivery        `json:"delivery"`
	PreTank          TankReading     `json:"pre_tank"`
	PrePumps         []PumpReading   `json:"pre_pumps"`
	LastError        string          `json:"last_error"`
}

// CurrentStep implements the wizard draft contract.
func (d StartDraft) CurrentStep() wizard.Step { return d.Step }

// SetStep implements the wizard draft contract.
func (d *StartDraft) SetStep(s wizard.Step) { d.Step = s }

// Purchase returns the selected purchase.
func (d StartDraft) Purchase() (Purchase, bool) {
	return d.Options.Purchase(d.PurchaseID)
}

// Tank returns the selected tank.
func (d StartDraft) Tank() (Tank, bool) {
	return d.Options.Tank(d.TankID)
}

// selectTank points the draft at tankID and lines up one pre-reading per
// pump on that tank, keeping readings already entered.
func (d *StartDraft) selectTank(tankID int64) {
	if d.TankID == tankID && len(d.PrePumps) > 0 {
		return
	}
	prev := make(map[int64]decimal.Decimal, len(d.PrePumps))
	for _, p := range d.PrePumps {
		prev[p.PumpID] = p.Electric
	}
	d.TankID = tankID
	d.PrePumps = d.PrePumps[:0]
	for _, p := range d.Options.PumpsFor(tankID) {
		d.PrePumps = append(d.PrePumps, PumpReading{PumpID: p.ID, PumpName: p.Name, Electric: prev[p.ID]})
	}
}

// CompleteDraft is the form state of the complete phase.
type CompleteDraft struct {
	OffloadID      int64           `json:"offload_id"`
	Step           wizard.Step     `json:"step"`
	IdempotencyKey string          `json:"idempotency_key"`
	StartedAt      time.Time       `json:"started_at"`
	Offload        Offload         `json:"offload"`
	PostTank       TankReading     `json:"post_tank"`
	PostPumps      []PumpReading   `json:"post_pumps"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Notes          string          `json:"notes"`
	LastError      string          `json:"last_error"`
}

// CurrentStep implements the wizard draft contract.
func (d CompleteDraft) CurrentStep() wizard.Step { return d.Step }

// SetStep implements the wizard draft contract.
func (d *CompleteDraft) SetStep(s wizard.Step) { d.Step = s }

// DispensedDuring sums what the tank's pumps sold while the delivery was
// pumped in, from the pre and post electric meters.
func (d CompleteDraft) DispensedDuring() decimal.Decimal {
	pre := make(map[int64]decimal.Decimal, len(d.Offload.PrePumps))
	for _, p := range d.Offload.PrePumps {
		pre[p.PumpID] = p.Electric
	}
	total := decimal.Zero
	for _, p := range d.PostPumps {
		start, ok := pre[p.PumpID]
		if !ok || p.Electric.IsZero() {
			continue
		}
		total = total.Add(reconcile.LitersDispensed(start, p.Electric))
	}
	return total
}

// MeasuredDelivery is the delivered volume derived from the tank readings.
func (d CompleteDraft) MeasuredDelivery() decimal.Decimal {
	if !d.PostTank.Captured() {
		return decimal.Zero
	}
	return reconcile.MeasuredDelivery(d.Offload.PreTank.Volume, d.PostTank.Volume, d.DispensedDuring())
}

// Variance is actual - expected quantity.
func (d CompleteDraft) Variance() decimal.Decimal {
	return reconcile.OffloadVariance(d.Offload.ExpectedQuantity, d.ActualQuantity)
}

// VariancePercentage is the variance relative to the expected quantity.
func (d CompleteDraft) VariancePercentage() decimal.Decimal {
	return reconcile.VariancePercentage(d.Offload.ExpectedQuantity, d.ActualQuantity)
}
