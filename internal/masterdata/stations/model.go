package stations

import (
	"time"
)

// Station is a fuel station of a company.
type Station struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	CompanyName string    `json:"company_name"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Location    string    `json:"location"`
	Phone       string    `json:"phone"`
	ManagerName string    `json:"manager_name"`
	Status      string    `json:"status"`
	TankCount   int       `json:"tank_count"`
	PumpCount   int       `json:"pump_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
