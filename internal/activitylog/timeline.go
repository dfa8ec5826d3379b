package activitylog

import "time"

// TimelineFilters holds the activity log filters.
type TimelineFilters struct {
	From      time.Time
	To        time.Time
	User      string
	Entity    string
	Action    string
	CompanyID int64
	StationID int64
	Page      int
	PageSize  int
}

// Entry is one recorded console or backend action.
type Entry struct {
	ID          int64     `json:"id"`
	At          time.Time `json:"created_at"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	Role        string    `json:"role"`
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	EntityID    string    `json:"entity_id"`
	Description string    `json:"description"`
	CompanyID   int64     `json:"company_id"`
	StationID   int64     `json:"station_id"`
	StationName string    `json:"station_name"`
	IPAddress   string    `json:"ip_address"`
}

// PagingInfo is the next/previous paging of the timeline. The backend does
// not report totals, so only the existence of a next page is known.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
}

// FiltersViewModel carries the filter values back to the template.
type FiltersViewModel struct {
	From   time.Time
	To     time.Time
	User   string
	Entity string
	Action string
}

// ViewModel is the data of the activity log page.
type ViewModel struct {
	Filters     FiltersViewModel
	Rows        []Entry
	Paging      PagingInfo
	Entities    []string
	Actions     []string
	Links       Links
	GeneratedAt time.Time
}

// Links are the export and paging URLs of the current filter set. PDF is
// empty when PDF export is not configured.
type Links struct {
	CSV  string
	XLSX string
	PDF  string
	Prev string
	Next string
}

// Known entity and action names, offered in the filter dropdowns.
var (
	Entities = []string{"company", "station", "user", "supplier", "shift", "offload", "purchase", "auth"}
	Actions  = []string{"create", "update", "delete", "open", "close", "start", "complete", "login", "logout"}
)
