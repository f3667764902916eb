package model

// Status is the lifecycle stage of an application. Values read from the
// spreadsheet are kept verbatim even when they are not one of the known
// constants.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusInterview Status = "Interview"
	StatusAccepted  Status = "Accepted"
	StatusRejected  Status = "Rejected"
)

// Statuses lists the known statuses in display order.
var Statuses = []Status{StatusPending, StatusInterview, StatusAccepted, StatusRejected}

// SourceEmail marks records created or last touched by the mail sync.
const SourceEmail = "email"

var statusPriority = map[Status]int{
	StatusPending:   0,
	StatusRejected:  1,
	StatusInterview: 2,
	StatusAccepted:  3,
}

// Priority ranks a status for the overwrite rule. Unknown values rank
// with Pending.
func (s Status) Priority() int {
	return statusPriority[s]
}

// Canonical column names of the record table, in file order.
const (
	ColumnCode            = "Code"
	ColumnCompany         = "Company"
	ColumnTheme           = "Theme"
	ColumnDomain          = "Domain"
	ColumnStatus          = "Status"
	ColumnApplicationDate = "ApplicationDate"
	ColumnStartDate       = "StartDate"
	ColumnLastEmail       = "LastEmail"
	ColumnSource          = "Source"
)

// Columns is the canonical column set.
var Columns = []string{
	ColumnCode,
	ColumnCompany,
	ColumnTheme,
	ColumnDomain,
	ColumnStatus,
	ColumnApplicationDate,
	ColumnStartDate,
	ColumnLastEmail,
	ColumnSource,
}

// Application is one row of the tracked table.
type Application struct {
	Code            string `json:"code"`
	Company         string `json:"company"`
	Theme           string `json:"theme"`
	Domain          string `json:"domain"`
	Status          Status `json:"status"`
	ApplicationDate string `json:"application_date"`
	StartDate       string `json:"start_date"`
	LastEmail       string `json:"last_email,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Get returns the value stored under a canonical column name.
func (a Application) Get(column string) string {
	switch column {
	case ColumnCode:
		return a.Code
	case ColumnCompany:
		return a.Company
	case ColumnTheme:
		return a.Theme
	case ColumnDomain:
		return a.Domain
	case ColumnStatus:
		return string(a.Status)
	case ColumnApplicationDate:
		return a.ApplicationDate
	case ColumnStartDate:
		return a.StartDate
	case ColumnLastEmail:
		return a.LastEmail
	case ColumnSource:
		return a.Source
	}
	return ""
}

// Set stores value under a canonical column name. Unknown columns are ignored.
func (a *Application) Set(column, value string) {
	switch column {
	case ColumnCode:
		a.Code = value
	case ColumnCompany:
		a.Company = value
	case ColumnTheme:
		a.Theme = value
	case ColumnDomain:
		a.Domain = value
	case ColumnStatus:
		a.Status = Status(value)
	case ColumnApplicationDate:
		a.ApplicationDate = value
	case ColumnStartDate:
		a.StartDate = value
	case ColumnLastEmail:
		a.LastEmail = value
	case ColumnSource:
		a.Source = value
	}
}

// Table is the full ordered set of records. Row position is the row identity.
type Table []Application

// Clone returns a copy that can be mutated without touching t.
func (t Table) Clone() Table {
	if t == nil {
		return Table{}
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}
