package dtcapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/dtcinsights/dtc-insights/internal/domain/overview"
)

const endpointOverview = "overview_events"

type overviewResponse struct {
	Items []overviewItem `json:"items"`
}

type overviewItem struct {
	CustomerName string          `json:"customer_name"`
	ChassiLast8  string          `json:"chassi_last8"`
	Plate        *string         `json:"plate"`
	DTCCount     int             `json:"dtc_count"`
	MostRecent   *string         `json:"most_recent"`
	Events       []overviewEvent `json:"events"`
}

type overviewEvent struct {
	DTC            *string  `json:"dtc"`
	DTCDescription *string  `json:"dtc_description"`
	Timestamp      *string  `json:"timestamp"`
	Status         *string  `json:"status"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	IMEI           *string  `json:"imei"`
}

// FetchOverview lists recent DTC activity grouped by vehicle.
func (c *Client) FetchOverview(ctx context.Context, q overview.Query) ([]overview.Vehicle, error) {
	params := url.Values{}
	setIf(params, "chassi", q.Chassi)
	setIf(params, "customer", q.Customer)
	setIf(params, "dtc", q.DTC)
	setIf(params, "event_date", q.EventDate)
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var raw overviewResponse
	if err := c.getJSON(ctx, endpointOverview, "/overview/dtc-events", params, &raw); err != nil {
		return nil, err
	}

	vehicles := make([]overview.Vehicle, 0, len(raw.Items))
	for _, item := range raw.Items {
		events := make([]overview.Event, 0, len(item.Events))
		for _, ev := range item.Events {
			events = append(events, overview.Event{
				DTC:         ev.DTC,
				Description: ev.DTCDescription,
				Timestamp:   parseTimestamp(ev.Timestamp),
				Status:      ev.Status,
				Lat:         ev.Lat,
				Lon:         ev.Lon,
				IMEI:        ev.IMEI,
			})
		}
		vehicles = append(vehicles, overview.Vehicle{
			CustomerName: item.CustomerName,
			ChassiLast8:  item.ChassiLast8,
			Plate:        item.Plate,
			DTCCount:     item.DTCCount,
			MostRecent:   parseTimestamp(item.MostRecent),
			Events:       events,
		})
	}
	return vehicles, nil
}
