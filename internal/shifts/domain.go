// Package shifts mirrors the backend shift resource: listing, detail and
// opening a shift with island assignments.
package shifts

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the backend lifecycle state of a shift.
type Status string

// Shift statuses.
const (
	StatusOpen   Status = "open"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// ParseStatus normalises backend spellings.
func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// Closable reports whether the shift may enter the closing wizard.
func (s Status) Closable() bool {
	switch ParseStatus(string(s)) {
	case StatusOpen, StatusActive:
		return true
	}
	return false
}

// IslandAssignment maps an island to the attendant working it.
type IslandAssignment struct {
	IslandID      int64  `json:"island_id" validate:"gt=0"`
	IslandName    string `json:"island_name,omitempty"`
	AttendantID   int64  `json:"attendant_id" validate:"gt=0"`
	AttendantName string `json:"attendant_name,omitempty"`
}

// Shift is the backend shift view model.
type Shift struct {
	ID             int64              `json:"id"`
	StationID      int64              `json:"station_id"`
	StationName    string             `json:"station_name"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        *time.Time         `json:"end_time"`
	Status         Status             `json:"status"`
	SupervisorID   int64              `json:"supervisor_id"`
	SupervisorName string             `json:"supervisor_name"`
	Islands        []IslandAssignment `json:"islands"`
	SalesTotal     decimal.Decimal    `json:"sales_total"`
}

// Closed reports whether the backend already closed the shift.
func (s Shift) Closed() bool {
	return ParseStatus(string(s.Status)) == StatusClosed
}

// Filter narrows the shift list.
type Filter struct {
	StationID int64
	Status    Status
	Page      int
}

// OpenShiftInput is posted to /shift/open.
type OpenShiftInput struct {
	StationID    int64              `json:"station_id" validate:"required,gt=0"`
	SupervisorID int64              `json:"supervisor_id" validate:"required,gt=0"`
	StartTime    time.Time          `json:"start_time" validate:"required"`
	Islands      []IslandAssignment `json:"islands" validate:"required,min=1,dive"`
}

// Island is a pump island of a station.
type Island struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Staff is a station user that can supervise or attend.
type Staff struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// OpenFormOptions holds the choices offered by the open-shift form.
type OpenFormOptions struct {
	Islands     []Island `json:"islands"`
	Supervisors []Staff  `json:"supervisors"`
	Attendants  []Staff  `json:"attendants"`
}
