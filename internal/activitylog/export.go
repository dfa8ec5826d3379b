package activitylog

import (
	"github.com/pumpline-erp/pumpline/internal/export"
)

// Table lays entries out for CSV and XLSX downloads.
func Table(rows []Entry) export.Table {
	t := export.Table{
		Sheet:   "Activity log",
		Headers: []string{"Time", "User", "Role", "Action", "Entity", "Entity ID", "Station", "Description", "IP address"},
	}
	for _, e := range rows {
		t.AddRow(e.At, e.UserName, e.Role, e.Action, e.Entity, e.EntityID, e.StationName, e.Description, e.IPAddress)
	}
	return t
}
