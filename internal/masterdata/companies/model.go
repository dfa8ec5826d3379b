package companies

import (
	"time"
)

// Company represents a company entity
type Company struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	TaxPIN             string    `json:"tax_pin"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Address            string    `json:"address"`
	Status             string    `json:"status"`
	StationCount       int       `json:"station_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
