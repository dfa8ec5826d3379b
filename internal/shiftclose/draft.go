package shiftclose

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/reconcile"
	"github.com/pumpline-erp/pumpline/internal/wizard"
)

// PumpEntry is the closing meter capture of one pump.
type PumpEntry struct {
	PumpID        int64           `json:"pump_id"`
	Name          string          `json:"name"`
	IslandID      int64           `json:"island_id"`
	TankID        int64           `json:"tank_id"`
	Product       string          `json:"product"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StartElectric decimal.Decimal `json:"start_electric"`
	EndElectric   decimal.Decimal `json:"end_electric"`
	StartManual   decimal.Decimal `json:"start_manual"`
	EndManual     decimal.Decimal `json:"end_manual"`
	StartCash     decimal.Decimal `json:"start_cash"`
	EndCash       decimal.Decimal `json:"end_cash"`
}

// Liters is the electric meter delta.
func (p PumpEntry) Liters() decimal.Decimal {
	return reconcile.LitersDispensed(p.StartElectric, p.EndElectric)
}

// SalesValue prices the electric meter delta.
func (p PumpEntry) SalesValue() decimal.Decimal {
	return reconcile.SalesValue(p.Liters(), p.UnitPrice)
}

// ManualLiters is the manual meter delta, shown next to the electric one.
func (p PumpEntry) ManualLiters() decimal.Decimal {
	if p.EndManual.IsZero() {
		return decimal.Zero
	}
	return reconcile.LitersDispensed(p.StartManual, p.EndManual)
}

// CashDelta is the cash meter delta.
func (p PumpEntry) CashDelta() decimal.Decimal {
	if p.EndCash.IsZero() {
		return decimal.Zero
	}
	return p.EndCash.Sub(p.StartCash)
}

// Captured reports whether a closing electric reading was entered.
func (p PumpEntry) Captured() bool {
	return !p.EndElectric.IsZero()
}

// Rollback reports an end reading below the start reading.
func (p PumpEntry) Rollback() bool {
	return p.Captured() && p.Liters().IsNegative()
}

// TankEntry is the closing dip capture of one tank.
type TankEntry struct {
	TankID      int64           `json:"tank_id"`
	Name        string          `json:"name"`
	Product     string          `json:"product"`
	StartDip    decimal.Decimal `json:"start_dip"`
	EndDip      decimal.Decimal `json:"end_dip"`
	StartVolume decimal.Decimal `json:"start_volume"`
	EndVolume   decimal.Decimal `json:"end_volume"`
	Temperature decimal.Decimal `json:"temperature"`
	Density     decimal.Decimal `json:"density"`
}

// Captured reports whether a closing dip was entered.
func (t TankEntry) Captured() bool {
	return !t.EndDip.IsZero()
}

// VolumeChange is end - start volume.
func (t TankEntry) VolumeChange() decimal.Decimal {
	return t.EndVolume.Sub(t.StartVolume)
}

// CollectionEntry is the money handed in for one island.
type CollectionEntry struct {
	IslandID      int64                `json:"island_id"`
	IslandName    string               `json:"island_name"`
	AttendantName string               `json:"attendant_name"`
	Amounts       reconcile.Collection `json:"amounts"`
	Notes         string               `json:"notes"`
}

// Total sums every payment method.
func (c CollectionEntry) Total() decimal.Decimal {
	return reconcile.TotalCollected(c.Amounts)
}

// Draft is the aggregate closing form state kept between wizard pages.
type Draft struct {
	ShiftID        int64             `json:"shift_id"`
	Step           wizard.Step       `json:"step"`
	IdempotencyKey string            `json:"idempotency_key"`
	StartedAt      time.Time         `json:"started_at"`
	Context        ClosingContext    `json:"context"`
	Check          PreClosingCheck   `json:"check"`
	Pumps          []PumpEntry       `json:"pumps"`
	Tanks          []TankEntry       `json:"tanks"`
	Collections    []CollectionEntry `json:"collections"`
	Notes          string            `json:"notes"`
	LastError      string            `json:"last_error"`
}

// NewDraft seeds a draft from the closing context: every pump, tank and
// island gets an entry carrying its opening values.
func NewDraft(ctx ClosingContext, check PreClosingCheck, key string, now time.Time) Draft {
	d := Draft{
		ShiftID:        ctx.Shift.ID,
		Step:           StepValidation,
		IdempotencyKey: key,
		StartedAt:      now,
		Context:        ctx,
		Check:          check,
	}
	for _, p := range ctx.Pumps {
		d.Pumps = append(d.Pumps, PumpEntry{
			PumpID:        p.ID,
			Name:          p.Name,
			IslandID:      p.IslandID,
			TankID:        p.TankID,
			Product:       p.Product,
			UnitPrice:     p.UnitPrice,
			StartElectric: p.StartElectric,
			StartManual:   p.StartManual,
			StartCash:     p.StartCash,
		})
	}
	for _, t := range ctx.Tanks {
		d.Tanks = append(d.Tanks, TankEntry{
			TankID:      t.ID,
			Name:        t.Name,
			Product:     t.Product,
			StartDip:    t.StartDip,
			StartVolume: t.StartVolume,
		})
	}
	for _, i := range ctx.Islands {
		d.Collections = append(d.Collections, CollectionEntry{
			IslandID:      i.ID,
			IslandName:    i.Name,
			AttendantName: i.AttendantName,
		})
	}
	return d
}

// IslandSummary reconciles one island.
type IslandSummary struct {
	IslandID           int64
	IslandName         string
	AttendantName      string
	FuelSales          decimal.Decimal
	NonFuelSales       decimal.Decimal
	Expected           decimal.Decimal
	Collected          decimal.Decimal
	Variance           decimal.Decimal
	VariancePercentage decimal.Decimal
	Breakdown          reconcile.Collection
}

// Summary is the derived view of a draft shown on the last step and
// serialized into the closing payload.
type Summary struct {
	Islands                 []IslandSummary
	TotalLiters             decimal.Decimal
	TotalFuelSales          decimal.Decimal
	TotalNonFuelSales       decimal.Decimal
	TotalExpected           decimal.Decimal
	TotalCollected          decimal.Decimal
	TotalVariance           decimal.Decimal
	TotalVariancePercentage decimal.Decimal
	Fuel                    reconcile.FuelBalance
	FuelByProduct           []reconcile.FuelBalance
	Warnings                []string
}

// Summarize derives every total of the draft. tolerance bounds the fuel
// reconciliation variance before a warning is raised.
func (d Draft) Summarize(tolerance decimal.Decimal) Summary {
	var s Summary
	sales := make([]reconcile.PumpSale, 0, len(d.Pumps))
	dispensed := make([]reconcile.PumpDispense, 0, len(d.Pumps))
	for _, p := range d.Pumps {
		if !p.Captured() {
			continue
		}
		liters := p.Liters()
		value := p.SalesValue()
		s.TotalLiters = s.TotalLiters.Add(liters)
		s.TotalFuelSales = s.TotalFuelSales.Add(value)
		sales = append(sales, reconcile.PumpSale{IslandID: p.IslandID, SalesValue: value})
		dispensed = append(dispensed, reconcile.PumpDispense{PumpID: p.PumpID, Product: p.Product, Liters: liters})
		if p.Rollback() {
			s.Warnings = append(s.Warnings, "Meter rollback on "+p.Name+": closing reading is below the opening reading.")
		}
	}

	nonFuel := make([]reconcile.NonFuelSale, 0, len(d.Context.NonFuelSales))
	for _, n := range d.Context.NonFuelSales {
		nonFuel = append(nonFuel, reconcile.NonFuelSale{IslandID: n.IslandID, Value: n.Value})
		s.TotalNonFuelSales = s.TotalNonFuelSales.Add(n.Value)
	}

	for _, c := range d.Collections {
		expected := reconcile.ExpectedCollection(c.IslandID, sales, nonFuel)
		collected := c.Total()
		is := IslandSummary{
			IslandID:           c.IslandID,
			IslandName:         c.IslandName,
			AttendantName:      c.AttendantName,
			FuelSales:          reconcile.ExpectedCollection(c.IslandID, sales, nil),
			Expected:           expected,
			Collected:          collected,
			Variance:           reconcile.Variance(expected, collected),
			VariancePercentage: reconcile.VariancePercentage(expected, collected),
			Breakdown:          c.Amounts,
		}
		is.NonFuelSales = expected.Sub(is.FuelSales)
		s.Islands = append(s.Islands, is)
		s.TotalCollected = s.TotalCollected.Add(collected)
	}
	s.TotalExpected = s.TotalFuelSales.Add(s.TotalNonFuelSales)
	s.TotalVariance = reconcile.Variance(s.TotalExpected, s.TotalCollected)
	s.TotalVariancePercentage = reconcile.VariancePercentage(s.TotalExpected, s.TotalCollected)

	movements := make([]reconcile.TankMovement, 0, len(d.Tanks))
	for _, t := range d.Tanks {
		if !t.Captured() {
			continue
		}
		movements = append(movements, reconcile.TankMovement{
			TankID:      t.TankID,
			Product:     t.Product,
			StartVolume: t.StartVolume,
			EndVolume:   t.EndVolume,
		})
	}
	s.Fuel, s.FuelByProduct = reconcile.BalanceFuel(movements, dispensed, tolerance)
	for _, b := range s.FuelByProduct {
		if b.Warning {
			s.Warnings = append(s.Warnings, "Fuel variance for "+b.Product+" of "+b.Variance.StringFixed(2)+" L exceeds the tolerance of "+tolerance.String()+" L.")
		}
	}
	return s
}
