package overview

import "time"

// Config carries listing defaults.
type Config struct {
	Days  int
	Limit int
}

// Query filters the fleet overview. EventDate is a YYYY-MM-DD key.
type Query struct {
	Chassi    string `form:"chassi" json:"chassi"`
	Customer  string `form:"customer" json:"customer"`
	DTC       string `form:"dtc" json:"dtc"`
	EventDate string `form:"event_date" json:"eventDate"`
	Days      int    `form:"days" json:"days"`
	Limit     int    `form:"limit" json:"limit"`
}

// Event is one DTC occurrence of a vehicle, optionally geolocated.
type Event struct {
	DTC         *string    `json:"dtc"`
	Description *string    `json:"dtcDescription"`
	Timestamp   *time.Time `json:"timestamp"`
	Status      *string    `json:"status"`
	Lat         *float64   `json:"lat"`
	Lon         *float64   `json:"lon"`
	IMEI        *string    `json:"imei"`
}

// Vehicle groups the recent events of one chassis.
type Vehicle struct {
	CustomerName string     `json:"customerName"`
	ChassiLast8  string     `json:"chassiLast8"`
	Plate        *string    `json:"plate"`
	DTCCount     int        `json:"dtcCount"`
	MostRecent   *time.Time `json:"mostRecent"`
	Events       []Event    `json:"events"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the box enclosing every marker.
type Bounds struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

// Marker is a geolocated event ready to be pinned on the map.
type Marker struct {
	Position     LatLng     `json:"position"`
	DTC          string     `json:"dtc"`
	Description  *string    `json:"dtcDescription"`
	Timestamp    *time.Time `json:"timestamp"`
	CustomerName string     `json:"customerName"`
	ChassiLast8  string     `json:"chassiLast8"`
}

// MapView tells the client where to look. With markers present the client
// fits Bounds without zooming past MaxZoom; otherwise it shows Center at Zoom.
type MapView struct {
	Center  LatLng   `json:"center"`
	Zoom    int      `json:"zoom"`
	MaxZoom int      `json:"maxZoom"`
	Bounds  *Bounds  `json:"bounds,omitempty"`
	Markers []Marker `json:"markers"`
}

// Result is the overview payload.
type Result struct {
	Query Query     `json:"query"`
	Items []Vehicle `json:"items"`
	Map   MapView   `json:"map"`
}
