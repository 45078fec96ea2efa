package history

import "time"

// Filters narrows every history query. Date fields are YYYY-MM-DD calendar
// keys; empty fields are not sent upstream.
type Filters struct {
	Chassi    string `json:"chassi"`
	Customer  string `json:"customer"`
	DTC       string `json:"dtc"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Range is an inclusive pair of date keys.
type Range struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// BreakdownItem is the per-code share of a day's total.
type BreakdownItem struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// DailyPoint is one calendar day's event aggregate.
type DailyPoint struct {
	Date      string          `json:"date"`
	Count     int             `json:"count"`
	Breakdown []BreakdownItem `json:"breakdown"`
}

// EventRow is a single DTC occurrence as listed in the history table.
type EventRow struct {
	Timestamp      *time.Time `json:"timestamp"`
	CustomerName   *string    `json:"customerName"`
	Chassi         *string    `json:"chassi"`
	ChassiLast8    *string    `json:"chassiLast8"`
	Plate          *string    `json:"plate"`
	DTCCode        *string    `json:"dtcCode"`
	DTCDescription *string    `json:"dtcDescription"`
	Status         *string    `json:"status"`
}

// Pagination describes one page of event rows.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// EventsPage is the events query payload.
type EventsPage struct {
	Items      []EventRow `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// SortDirection orders event rows by timestamp.
type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// ParseSort defaults anything unrecognised to descending.
func ParseSort(raw string) SortDirection {
	if SortDirection(raw) == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// Toggle flips the direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// DailyQuery asks for the daily series of a filter set over one range.
type DailyQuery struct {
	Filters Filters
	Range   Range
}

// EventsQuery asks for one page of event rows.
type EventsQuery struct {
	Filters  Filters
	Page     int
	PageSize int
	Sort     SortDirection
}

// Section holds the independent network state of one sub-query.
type Section[T any] struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data"`
}

// SeriesData is the payload of the current and previous sections.
type SeriesData struct {
	Range  *Range       `json:"range,omitempty"`
	Points []DailyPoint `json:"points"`
	Total  int          `json:"total"`
}

// KPI is the trend card derived from the current and previous sections.
type KPI struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Trend   Trend  `json:"trend"`
}

// State of an orchestrator's fetch cycle.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateSettled  State = "settled"
)

// Result is the consolidated output of a history query cycle.
type Result struct {
	Generation     uint64              `json:"generation"`
	State          State               `json:"state"`
	AppliedFilters Filters             `json:"appliedFilters"`
	Page           int                 `json:"page"`
	Sort           SortDirection       `json:"sort"`
	Current        Section[SeriesData] `json:"current"`
	Previous       Section[SeriesData] `json:"previous"`
	Events         Section[EventsPage] `json:"events"`
	KPI            KPI                 `json:"kpi"`
}
