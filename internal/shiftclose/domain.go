// Package shiftclose implements the shift closing wizard: pump meter
// readings, tank dips and island collections are captured step by step,
// reconciled, and submitted to the backend as one closing payload.
package shiftclose

import (
	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/shifts"
)

// Pump is a pump as listed in the closing context, with its opening meters.
type Pump struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	IslandID      int64           `json:"island_id"`
	TankID        int64           `json:"tank_id"`
	Product       string          `json:"product"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StartElectric decimal.Decimal `json:"start_electric"`
	StartManual   decimal.Decimal `json:"start_manual"`
	StartCash     decimal.Decimal `json:"start_cash"`
}

// Tank is a tank as listed in the closing context, with its opening dip.
type Tank struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Product     string          `json:"product"`
	Capacity    decimal.Decimal `json:"capacity"`
	StartDip    decimal.Decimal `json:"start_dip"`
	StartVolume decimal.Decimal `json:"start_volume"`
}

// Island is a pump island with the attendant assigned for the shift.
type Island struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AttendantName string `json:"attendant_name"`
}

// NonFuelSale is a shop or lubricant sale booked against an island.
type NonFuelSale struct {
	IslandID    int64           `json:"island_id"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
}

// ClosingContext is everything the wizard needs from the backend.
type ClosingContext struct {
	Shift        shifts.Shift  `json:"shift"`
	Pumps        []Pump        `json:"pumps"`
	Tanks        []Tank        `json:"tanks"`
	Islands      []Island      `json:"islands"`
	NonFuelSales []NonFuelSale `json:"non_fuel_sales"`
}

// CheckIssue is one finding of the backend pre-closing check.
type CheckIssue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// PreClosingCheck is the backend verdict on whether a shift may be closed.
type PreClosingCheck struct {
	CanClose bool         `json:"can_close"`
	Issues   []CheckIssue `json:"issues"`
}

// Ready reports whether the backend allows closing: it must say so and
// report no blocking issue.
func (c PreClosingCheck) Ready() bool {
	return c.CanClose && len(c.Blocking()) == 0
}

// Blocking returns the issues that prevent closing.
func (c PreClosingCheck) Blocking() []CheckIssue {
	var out []CheckIssue
	for _, i := range c.Issues {
		if i.Blocking {
			out = append(out, i)
		}
	}
	return out
}

// CloseResult is the backend response to a successful close.
type CloseResult struct {
	ShiftID int64         `json:"shift_id"`
	Status  shifts.Status `json:"status"`
	Message string        `json:"message"`
}
