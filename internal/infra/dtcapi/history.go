package dtcapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dtcinsights/dtc-insights/internal/domain/history"
)

const (
	endpointDaily  = "history_daily"
	endpointEvents = "history_events"
)

// FetchDaily retrieves the sparse daily series for a range.
func (c *Client) FetchDaily(ctx context.Context, q history.DailyQuery) ([]history.DailyPoint, error) {
	params := filterParams(q.Filters)
	setIf(params, "start_date", q.Range.StartDate)
	setIf(params, "end_date", q.Range.EndDate)

	var raw json.RawMessage
	if err := c.getJSON(ctx, endpointDaily, "/history/daily", params, &raw); err != nil {
		return nil, err
	}
	return decodeDaily(raw)
}

// FetchEvents retrieves one page of event rows.
func (c *Client) FetchEvents(ctx context.Context, q history.EventsQuery) (history.EventsPage, error) {
	params := filterParams(q.Filters)
	setIf(params, "start_date", q.Filters.StartDate)
	setIf(params, "end_date", q.Filters.EndDate)
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	setIf(params, "order", string(q.Sort))

	var raw eventsResponse
	if err := c.getJSON(ctx, endpointEvents, "/history/events", params, &raw); err != nil {
		return history.EventsPage{}, err
	}
	return raw.toPage(q), nil
}

func filterParams(f history.Filters) url.Values {
	params := url.Values{}
	setIf(params, "chassi", f.Chassi)
	setIf(params, "customer", f.Customer)
	setIf(params, "dtc", f.DTC)
	return params
}

func setIf(params url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		params.Set(key, v)
	}
}

// dailyPoint accepts every field spelling the API has used.
type dailyPoint struct {
	EventDate  string           `json:"event_date"`
	Date       string           `json:"date"`
	TotalCount *int             `json:"total_count"`
	Count      *int             `json:"count"`
	Breakdown  []breakdownEntry `json:"breakdown"`
}

type breakdownEntry struct {
	DTC   string `json:"dtc"`
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// decodeDaily maps {"points": [...]} or a bare array into domain points,
// dropping entries without a date.
func decodeDaily(raw json.RawMessage) ([]history.DailyPoint, error) {
	var wrapped struct {
		Points []dailyPoint `json:"points"`
	}
	var points []dailyPoint
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, err
		}
	} else if trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		points = wrapped.Points
	}

	out := make([]history.DailyPoint, 0, len(points))
	for _, p := range points {
		date := firstNonEmpty(p.EventDate, p.Date)
		if date == "" {
			continue
		}
		count := 0
		switch {
		case p.TotalCount != nil:
			count = *p.TotalCount
		case p.Count != nil:
			count = *p.Count
		}
		breakdown := make([]history.BreakdownItem, 0, len(p.Breakdown))
		for _, b := range p.Breakdown {
			breakdown = append(breakdown, history.BreakdownItem{Code: firstNonEmpty(b.DTC, b.Code), Count: b.Count})
		}
		out = append(out, history.DailyPoint{Date: date, Count: count, Breakdown: breakdown})
	}
	return out, nil
}

type eventsResponse struct {
	Items      []eventRow      `json:"items"`
	Pagination *paginationBody `json:"pagination"`
}

type eventRow struct {
	Timestamp      *string `json:"timestamp"`
	CustomerName   *string `json:"customer_name"`
	Chassi         *string `json:"chassi"`
	ChassiLast8    *string `json:"chassi_last8"`
	Plate          *string `json:"plate"`
	DTC            *string `json:"dtc"`
	DTCDescription *string `json:"dtc_description"`
	Status         *string `json:"status"`
}

type paginationBody struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func (r eventsResponse) toPage(q history.EventsQuery) history.EventsPage {
	items := make([]history.EventRow, 0, len(r.Items))
	for _, row := range r.Items {
		items = append(items, history.EventRow{
			Timestamp:      parseTimestamp(row.Timestamp),
			CustomerName:   row.CustomerName,
			Chassi:         row.Chassi,
			ChassiLast8:    row.ChassiLast8,
			Plate:          row.Plate,
			DTCCode:        row.DTC,
			DTCDescription: row.DTCDescription,
			Status:         row.Status,
		})
	}

	if r.Pagination == nil {
		return history.EventsPage{
			Items:      items,
			Pagination: history.Pagination{Page: q.Page, PageSize: q.PageSize, TotalItems: len(items), TotalPages: 1},
		}
	}
	p := history.Pagination(*r.Pagination)
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	return history.EventsPage{Items: items, Pagination: p}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp returns nil for absent or unparseable values. Values
// without an offset are taken as UTC.
func parseTimestamp(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
