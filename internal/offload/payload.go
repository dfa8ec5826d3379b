package offload

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartPayload is posted to /offload/start.
type StartPayload struct {
	StationID        int64           `json:"station_id"`
	PurchaseID       int64           `json:"purchase_id"`
	TankID           int64           `json:"tank_id"`
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	Delivery         Delivery        `json:"delivery"`
	PreTankReading   TankReading     `json:"pre_tank_reading"`
	PrePumpReadings  []PumpReading   `json:"pre_pump_readings"`
	StartedAt        time.Time       `json:"started_at"`
}

// BuildStartPayload serializes the start draft.
func BuildStartPayload(d StartDraft, at time.Time) StartPayload {
	pumps := make([]PumpReading, 0, len(d.PrePumps))
	for _, p := range d.PrePumps {
		pumps = append(pumps, PumpReading{PumpID: p.PumpID, Electric: p.Electric})
	}
	return StartPayload{
		StationID:        d.StationID,
		PurchaseID:       d.PurchaseID,
		TankID:           d.TankID,
		ExpectedQuantity: d.ExpectedQuantity,
		Delivery:         d.Delivery,
		PreTankReading:   d.PreTank,
		PrePumpReadings:  pumps,
		StartedAt:        at.UTC(),
	}
}

// CompletePayload is posted to /offload/{id}/complete.
type CompletePayload struct {
	PostTankReading    TankReading     `json:"post_tank_reading"`
	PostPumpReadings   []PumpReading   `json:"post_pump_readings"`
	ActualQuantity     decimal.Decimal `json:"actual_quantity"`
	MeasuredQuantity   decimal.Decimal `json:"measured_quantity"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	Notes              string          `json:"notes,omitempty"`
	CompletedAt        time.Time       `json:"completed_at"`
}

// BuildCompletePayload serializes the complete draft.
func BuildCompletePayload(d CompleteDraft, at time.Time) CompletePayload {
	pumps := make([]PumpReading, 0, len(d.PostPumps))
	for _, p := range d.PostPumps {
		pumps = append(pumps, PumpReading{PumpID: p.PumpID, Electric: p.Electric})
	}
	return CompletePayload{
		PostTankReading:    d.PostTank,
		PostPumpReadings:   pumps,
		ActualQuantity:     d.ActualQuantity,
		MeasuredQuantity:   d.MeasuredDelivery(),
		Variance:           d.Variance(),
		VariancePercentage: d.VariancePercentage().Round(2),
		Notes:              d.Notes,
		CompletedAt:        at.UTC(),
	}
}
