// Package offload records fuel deliveries in two phases. Start captures the
// purchase, the delivery truck and the tank and pump readings before the
// delivery is pumped in; complete captures the readings afterwards and the
// delivered quantity.
package offload

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the backend lifecycle state of an offload.
type Status string

// Offload statuses.
const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
)

// ParseStatus normalises backend spellings.
func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// Delivery describes the truck and paperwork of a delivery.
type Delivery struct {
	TruckPlate   string    `json:"truck_plate" validate:"required,max=20"`
	DriverName   string    `json:"driver_name" validate:"required,max=100"`
	DriverPhone  string    `json:"driver_phone" validate:"required,phone"`
	DeliveryNote string    `json:"delivery_note" validate:"required,max=50"`
	SealNumbers  []string  `json:"seal_numbers"`
	ArrivalTime  time.Time `json:"arrival_time" validate:"required"`
}

// TankReading is a dip of the receiving tank.
type TankReading struct {
	Dip         decimal.Decimal `json:"dip"`
	Volume      decimal.Decimal `json:"volume"`
	Temperature decimal.Decimal `json:"temperature"`
	Density     decimal.Decimal `json:"density"`
}

// Captured reports whether a dip was entered.
func (t TankReading) Captured() bool {
	return !t.Dip.IsZero()
}

// PumpReading is the electric meter of a pump drawing from the tank.
type PumpReading struct {
	PumpID   int64           `json:"pump_id"`
	PumpName string          `json:"pump_name,omitempty"`
	Electric decimal.Decimal `json:"electric"`
}

// Offload is the backend offload view model.
type Offload struct {
	ID                 int64           `json:"id"`
	StationID          int64           `json:"station_id"`
	StationName        string          `json:"station_name"`
	TankID             int64           `json:"tank_id"`
	TankName           string          `json:"tank_name"`
	Product            string          `json:"product"`
	PurchaseID         int64           `json:"purchase_id"`
	PurchaseReference  string          `json:"purchase_reference"`
	SupplierName       string          `json:"supplier_name"`
	ExpectedQuantity   decimal.Decimal `json:"expected_quantity"`
	ActualQuantity     decimal.Decimal `json:"actual_quantity"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
	Status             Status          `json:"status"`
	Delivery           Delivery        `json:"delivery"`
	PreTank            TankReading     `json:"pre_tank_reading"`
	PostTank           TankReading     `json:"post_tank_reading"`
	PrePumps           []PumpReading   `json:"pre_pump_readings"`
	PostPumps          []PumpReading   `json:"post_pump_readings"`
	StartedAt          time.Time       `json:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at"`
}

// Completed reports whether the second phase was recorded.
func (o Offload) Completed() bool {
	return ParseStatus(string(o.Status)) == StatusCompleted
}

// Purchase is a fuel purchase order awaiting delivery.
type Purchase struct {
	ID           int64           `json:"id"`
	Reference    string          `json:"reference"`
	SupplierID   int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Product      string          `json:"product"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Status       string          `json:"status"`
}

// Tank is a station tank that can receive a delivery.
type Tank struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Product       string          `json:"product"`
	Capacity      decimal.Decimal `json:"capacity"`
	CurrentVolume decimal.Decimal `json:"current_volume"`
}

// Ullage is the free capacity of the tank.
func (t Tank) Ullage() decimal.Decimal {
	return t.Capacity.Sub(t.CurrentVolume)
}

// Pump is a pump with the tank it draws from.
type Pump struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TankID int64  `json:"tank_id"`
}

// StartOptions lists what the start form chooses from.
type StartOptions struct {
	Purchases []Purchase `json:"purchases"`
	Tanks     []Tank     `json:"tanks"`
	Pumps     []Pump     `json:"pumps"`
}

// Purchase finds a purchase by id.
func (o StartOptions) Purchase(id int64) (Purchase, bool) {
	for _, p := range o.Purchases {
		if p.ID == id {
			return p, true
		}
	}
	return Purchase{}, false
}

// Tank finds a tank by id.
func (o StartOptions) Tank(id int64) (Tank, bool) {
	for _, t := range o.Tanks {
		if t.ID == id {
			return t, true
		}
	}
	return Tank{}, false
}

// PumpsFor lists the pumps drawing from tankID.
func (o StartOptions) PumpsFor(tankID int64) []Pump {
	var out []Pump
	for _, p := range o.Pumps {
		if p.TankID == tankID {
			out = append(out, p)
		}
	}
	return out
}

// Filter narrows the offload list.
type Filter struct {
	StationID int64
	Status    Status
}
