package overview

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/dtcinsights/dtc-insights/internal/domain/history"
	apperrors "github.com/dtcinsights/dtc-insights/pkg/errors"
)

const (
	chassiKeyLen   = 8
	noCodeLabel    = "Sem código"
	emptyMapZoom   = 4
	maxAutoMapZoom = 7
	defaultMapZoom = 5
)

// BrazilCenter is where the map opens.
var BrazilCenter = LatLng{Lat: -14.235004, Lon: -51.92528}

// Client fetches overview rows from the DTC API.
type Client interface {
	FetchOverview(ctx context.Context, q Query) ([]Vehicle, error)
}

// Service lists recent DTC activity per vehicle.
type Service interface {
	List(ctx context.Context, q Query) (Result, error)
}

type service struct {
	cfg    Config
	client Client
	logger *slog.Logger
}

// NewService wires the overview listing.
func NewService(cfg Config, client Client, logger *slog.Logger) Service {
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 500
	}
	return &service{cfg: cfg, client: client, logger: logger.With("component", "overview.service")}
}

func (s *service) List(ctx context.Context, q Query) (Result, error) {
	q, err := s.normalize(q)
	if err != nil {
		return Result{}, err
	}
	items, err := s.client.FetchOverview(ctx, q)
	if err != nil {
		s.logger.Error("overview fetch failed", "error", err)
		return Result{}, apperrors.Wrap(apperrors.CodeUpstream, "Não foi possível carregar os eventos. Tente novamente.", err)
	}
	if items == nil {
		items = []Vehicle{}
	}
	return Result{Query: q, Items: items, Map: BuildMap(items)}, nil
}

func (s *service) normalize(q Query) (Query, error) {
	q.Chassi = NormalizeChassi(q.Chassi)
	q.Customer = strings.TrimSpace(q.Customer)
	q.DTC = strings.ToUpper(strings.TrimSpace(q.DTC))
	q.EventDate = strings.TrimSpace(q.EventDate)
	if q.EventDate != "" {
		if _, ok := history.FromKey(q.EventDate); !ok {
			return Query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "event_date must be a YYYY-MM-DD date", nil)
		}
	}
	if q.Days < 0 || q.Limit < 0 {
		return Query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "days and limit cannot be negative", nil)
	}
	if q.Days == 0 {
		q.Days = s.cfg.Days
	}
	if q.Limit == 0 || q.Limit > s.cfg.Limit {
		q.Limit = s.cfg.Limit
	}
	return q, nil
}

// NormalizeChassi upper-cases the input and keeps its last eight characters.
func NormalizeChassi(raw string) string {
	c := []rune(strings.ToUpper(strings.TrimSpace(raw)))
	if len(c) > chassiKeyLen {
		c = c[len(c)-chassiKeyLen:]
	}
	return string(c)
}

// BuildMap flattens geolocated events into markers and frames them.
func BuildMap(items []Vehicle) MapView {
	view := MapView{Center: BrazilCenter, Zoom: emptyMapZoom, MaxZoom: maxAutoMapZoom, Markers: []Marker{}}

	south, west := math.Inf(1), math.Inf(1)
	north, east := math.Inf(-1), math.Inf(-1)
	for _, item := range items {
		for _, ev := range item.Events {
			if ev.Lat == nil || ev.Lon == nil {
				continue
			}
			lat, lon := *ev.Lat, *ev.Lon
			code := noCodeLabel
			if ev.DTC != nil && *ev.DTC != "" {
				code = *ev.DTC
			}
			view.Markers = append(view.Markers, Marker{
				Position:     LatLng{Lat: lat, Lon: lon},
				DTC:          code,
				Description:  ev.Description,
				Timestamp:    ev.Timestamp,
				CustomerName: item.CustomerName,
				ChassiLast8:  item.ChassiLast8,
			})
			south, north = math.Min(south, lat), math.Max(north, lat)
			west, east = math.Min(west, lon), math.Max(east, lon)
		}
	}
	if len(view.Markers) == 0 {
		return view
	}

	view.Zoom = defaultMapZoom
	view.Bounds = &Bounds{
		SouthWest: LatLng{Lat: south, Lon: west},
		NorthEast: LatLng{Lat: north, Lon: east},
	}
	view.Center = LatLng{Lat: (south + north) / 2, Lon: (west + east) / 2}
	return view
}
