package shiftclose

import (
	"time"

	"github.com/shopspring/decimal"
)

// PumpReadingPayload is one pump of the closing payload.
type PumpReadingPayload struct {
	PumpID          int64           `json:"pump_id"`
	IslandID        int64           `json:"island_id"`
	TankID          int64           `json:"tank_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	StartElectric   decimal.Decimal `json:"start_electric"`
	EndElectric     decimal.Decimal `json:"end_electric"`
	StartManual     decimal.Decimal `json:"start_manual"`
	EndManual       decimal.Decimal `json:"end_manual"`
	StartCash       decimal.Decimal `json:"start_cash"`
	EndCash         decimal.Decimal `json:"end_cash"`
	LitersDispensed decimal.Decimal `json:"liters_dispensed"`
	SalesValue      decimal.Decimal `json:"sales_value"`
}

// TankReadingPayload is one tank of the closing payload.
type TankReadingPayload struct {
	TankID      int64           `json:"tank_id"`
	StartDip    decimal.Decimal `json:"start_dip"`
	EndDip      decimal.Decimal `json:"end_dip"`
	StartVolume decimal.Decimal `json:"start_volume"`
	EndVolume   decimal.Decimal `json:"end_volume"`
	Temperature decimal.Decimal `json:"temperature"`
	Density     decimal.Decimal `json:"density"`
}

// CollectionPayload is one island of the closing payload.
type CollectionPayload struct {
	IslandID           int64           `json:"island_id"`
	Cash               decimal.Decimal `json:"cash"`
	MobileMoney        decimal.Decimal `json:"mobile_money"`
	Visa               decimal.Decimal `json:"visa"`
	Mastercard         decimal.Decimal `json:"mastercard"`
	Debt               decimal.Decimal `json:"debt"`
	Other              decimal.Decimal `json:"other"`
	Total              decimal.Decimal `json:"total"`
	Expected           decimal.Decimal `json:"expected"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	Notes              string          `json:"notes,omitempty"`
}

// TotalsPayload carries the shift level reconciliation.
type TotalsPayload struct {
	LitersDispensed    decimal.Decimal `json:"liters_dispensed"`
	FuelSales          decimal.Decimal `json:"fuel_sales"`
	NonFuelSales       decimal.Decimal `json:"non_fuel_sales"`
	Expected           decimal.Decimal `json:"expected"`
	Collected          decimal.Decimal `json:"collected"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	FuelVariance       decimal.Decimal `json:"fuel_variance"`
}

// ClosePayload is posted to /shift/{id}/close.
type ClosePayload struct {
	ShiftID      int64                `json:"shift_id"`
	ClosedAt     time.Time            `json:"closed_at"`
	PumpReadings []PumpReadingPayload `json:"pump_readings"`
	TankReadings []TankReadingPayload `json:"tank_readings"`
	Collections  []CollectionPayload  `json:"collections"`
	Totals       TotalsPayload        `json:"totals"`
	Notes        string               `json:"notes,omitempty"`
}

// BuildPayload serializes the draft. Pumps and tanks without a closing
// reading are left out; the backend keeps their previous values.
func BuildPayload(d Draft, tolerance decimal.Decimal, closedAt time.Time) ClosePayload {
	sum := d.Summarize(tolerance)
	out := ClosePayload{
		ShiftID:  d.ShiftID,
		ClosedAt: closedAt.UTC(),
		Notes:    d.Notes,
		Totals: TotalsPayload{
			LitersDispensed:    sum.TotalLiters,
			FuelSales:          sum.TotalFuelSales,
			NonFuelSales:       sum.TotalNonFuelSales,
			Expected:           sum.TotalExpected,
			Collected:          sum.TotalCollected,
			Variance:           sum.TotalVariance,
			VariancePercentage: sum.TotalVariancePercentage.Round(2),
			FuelVariance:       sum.Fuel.Variance,
		},
		PumpReadings: []PumpReadingPayload{},
		TankReadings: []TankReadingPayload{},
		Collections:  []CollectionPayload{},
	}
	for _, p := range d.Pumps {
		if !p.Captured() {
			continue
		}
		out.PumpReadings = append(out.PumpReadings, PumpReadingPayload{
			PumpID:          p.PumpID,
			IslandID:        p.IslandID,
			TankID:          p.TankID,
			UnitPrice:       p.UnitPrice,
			StartElectric:   p.StartElectric,
			EndElectric:     p.EndElectric,
			StartManual:     p.StartManual,
			EndManual:       p.EndManual,
			StartCash:       p.StartCash,
			EndCash:         p.EndCash,
			LitersDispensed: p.Liters(),
			SalesValue:      p.SalesValue(),
		})
	}
	for _, t := range d.Tanks {
		if !t.Captured() {
			continue
		}
		out.TankReadings = append(out.TankReadings, TankReadingPayload{
			TankID:      t.TankID,
			StartDip:    t.StartDip,
			EndDip:      t.EndDip,
			StartVolume: t.StartVolume,
			EndVolume:   t.EndVolume,
			Temperature: t.Temperature,
			Density:     t.Density,
		})
	}
	for i, c := range d.Collections {
		is := sum.Islands[i]
		out.Collections = append(out.Collections, CollectionPayload{
			IslandID:           c.IslandID,
			Cash:               c.Amounts.Cash,
			MobileMoney:        c.Amounts.MobileMoney,
			Visa:               c.Amounts.Visa,
			Mastercard:         c.Amounts.Mastercard,
			Debt:               c.Amounts.Debt,
			Other:              c.Amounts.Other,
			Total:              is.Collected,
			Expected:           is.Expected,
			Variance:           is.Variance,
			VariancePercentage: is.VariancePercentage.Round(2),
			Notes:              c.Notes,
		})
	}
	return out
}
