// Package dashboard builds the role-specific landing page from the backend
// summary endpoint.
package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pumpline-erp/pumpline/internal/shared"
	"github.com/pumpline-erp/pumpline/internal/view"
)

// ActiveShift is the shift currently running at a station.
type ActiveShift struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	StartTime      time.Time       `json:"start_time"`
	SupervisorName string          `json:"supervisor_name"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
}

// VarianceAlert is a recently closed shift whose collection variance was
// flagged by the backend.
type VarianceAlert struct {
	ShiftID            int64           `json:"shift_id"`
	StationName        string          `json:"station_name"`
	ClosedAt           time.Time       `json:"closed_at"`
	Variance           decimal.Decimal `json:"variance"`
	VariancePercentage decimal.Decimal `json:"variance_percentage"`
}

// StationSales ranks stations by today's sales.
type StationSales struct {
	StationID int64           `json:"station_id"`
	Name      string          `json:"name"`
	Sales     decimal.Decimal `json:"sales"`
	Liters    decimal.Decimal `json:"liters"`
}

// Summary is the payload of /dashboard/summary for one scope.
type Summary struct {
	Companies       int             `json:"companies"`
	ActiveCompanies int             `json:"active_companies"`
	Stations        int             `json:"stations"`
	ActiveStations  int             `json:"active_stations"`
	Users           int             `json:"users"`
	SalesToday      decimal.Decimal `json:"sales_today"`
	SalesMonth      decimal.Decimal `json:"sales_month"`
	LitersToday     decimal.Decimal `json:"liters_today"`
	OpenShifts      int             `json:"open_shifts"`
	PendingOffloads int             `json:"pending_offloads"`
	SupplierBalance decimal.Decimal `json:"supplier_balance"`
	SupplierOverdue decimal.Decimal `json:"supplier_overdue"`
	ActiveShift     *ActiveShift    `json:"active_shift"`
	VarianceAlerts  []VarianceAlert `json:"variance_alerts"`
	TopStations     []StationSales  `json:"top_stations"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Card is one headline figure.
type Card struct {
	Label string
	Value string
	Hint  string
	Link  string
	Tone  string
}

// Dashboard is the view model of the landing page.
type Dashboard struct {
	Role        shared.Role
	Cards       []Card
	ActiveShift *ActiveShift
	CanClose    bool
	Alerts      []VarianceAlert
	TopStations []StationSales
	GeneratedAt time.Time
}

// Build picks the figures each role cares about.
func Build(p shared.Principal, s Summary) Dashboard {
	d := Dashboard{Role: p.Role, GeneratedAt: s.GeneratedAt}
	salesToday := Card{Label: "Sales today", Value: view.Money(s.SalesToday), Hint: view.Liters(s.LitersToday)}
	salesMonth := Card{Label: "Sales this month", Value: view.Money(s.SalesMonth)}
	stations := Card{
		Label: "Stations",
		Value: strconv.Itoa(s.Stations),
		Hint:  fmt.Sprintf("%d active", s.ActiveStations),
		Link:  "/stations",
	}
	offloads := Card{Label: "Offloads in progress", Value: strconv.Itoa(s.PendingOffloads), Link: "/offloads"}
	if s.PendingOffloads > 0 {
		offloads.Tone = "warning"
	}

	switch p.Role {
	case shared.RoleSuperAdmin:
		d.Cards = []Card{
			{Label: "Companies", Value: strconv.Itoa(s.Companies), Hint: fmt.Sprintf("%d active", s.ActiveCompanies), Link: "/companies"},
			stations, salesToday, salesMonth,
		}
		d.TopStations = s.TopStations
	case shared.RoleCompanyAdmin:
		suppliers := Card{Label: "Supplier balance", Value: view.Money(s.SupplierBalance), Link: "/suppliers/accounts"}
		if s.SupplierOverdue.IsPositive() {
			suppliers.Hint = view.Money(s.SupplierOverdue) + " overdue"
			suppliers.Tone = "warning"
		}
		d.Cards = []Card{stations, salesToday, salesMonth, suppliers}
		d.TopStations = s.TopStations
		d.Alerts = s.VarianceAlerts
	case shared.RoleStationManager:
		d.Cards = []Card{
			{Label: "Open shifts", Value: strconv.Itoa(s.OpenShifts), Link: "/shifts"},
			offloads, salesToday,
		}
		d.ActiveShift = s.ActiveShift
		d.CanClose = s.ActiveShift != nil
		d.Alerts = s.VarianceAlerts
	case shared.RoleSupervisor:
		d.Cards = []Card{offloads}
		d.ActiveShift = s.ActiveShift
		d.CanClose = s.ActiveShift != nil
	}
	return d
}
