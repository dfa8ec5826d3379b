package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"

	// ConfirmField must carry ConfirmValue on delete posts. It is only set
	// by the confirmation page.
	ConfirmField = "confirm"
	ConfirmValue = "yes"
)

// Entity statuses shared by companies, stations, users and suppliers.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Statuses lists the status filter options.
var Statuses = []string{StatusActive, StatusInactive}
