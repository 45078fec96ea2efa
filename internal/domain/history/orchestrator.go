package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dtcinsights/dtc-insights/pkg/metrics"
)

// Section error messages shown to the dashboard user.
const (
	ErrMsgDaily  = "Não foi possível carregar a série temporal."
	ErrMsgKPI    = "Não foi possível calcular a variação em relação ao período anterior."
	ErrMsgEvents = "Não foi possível carregar os eventos filtrados."
)

// Fetcher is the upstream history API.
type Fetcher interface {
	FetchDaily(ctx context.Context, q DailyQuery) ([]DailyPoint, error)
	FetchEvents(ctx context.Context, q EventsQuery) (EventsPage, error)
}

// Config tunes an Orchestrator.
type Config struct {
	PageSize         int
	DefaultRangeDays int
	Location         *time.Location
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 25
	}
	if c.DefaultRangeDays <= 0 {
		c.DefaultRangeDays = 7
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Orchestrator runs the three history sub-queries of a view and keeps the
// consolidated result. Every Run bumps a generation counter; sections that
// settle after a newer Run started are dropped.
type Orchestrator struct {
	cfg     Config
	fetcher Fetcher
	metrics *metrics.History
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
	comparable bool
	result     Result
}

// NewOrchestrator returns an idle orchestrator whose applied filters are
// the default range.
func NewOrchestrator(cfg Config, fetcher Fetcher, m *metrics.History, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		metrics: m,
		logger:  logger.With("component", "history.orchestrator"),
		now:     time.Now,
	}
	o.result = o.emptyResult(o.DefaultFilters(), 1, SortDesc)
	return o
}

// DefaultFilters covers the last DefaultRangeDays days ending today.
func (o *Orchestrator) DefaultFilters() Filters {
	today := Today(o.now(), o.cfg.Location)
	return Filters{
		StartDate: ToKey(AddDays(today, -(o.cfg.DefaultRangeDays - 1))),
		EndDate:   ToKey(today),
	}
}

// Snapshot returns a copy of the current result.
func (o *Orchestrator) Snapshot() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Run applies filters and fetches the current series, the comparison
// series and one page of events concurrently. It waits for all three to
// settle and returns the consolidated snapshot. Failures never escape Run;
// they are reported on the section that failed.
func (o *Orchestrator) Run(ctx context.Context, filters Filters, page int, sort SortDirection) Result {
	if page < 1 {
		page = 1
	}
	if sort != SortAsc {
		sort = SortDesc
	}

	o.mu.Lock()
	gen := o.beginLocked(filters, page, sort)
	o.mu.Unlock()

	return o.fanOut(ctx, gen, filters, page, sort)
}

// LoadDefaults runs the default range when the view has never run and
// otherwise returns the current snapshot untouched. The idle check and the
// start of the run share one lock.
func (o *Orchestrator) LoadDefaults(ctx context.Context) Result {
	o.mu.Lock()
	if o.result.State != StateIdle {
		snap := o.result
		o.mu.Unlock()
		return snap
	}
	filters := o.DefaultFilters()
	gen := o.beginLocked(filters, 1, SortDesc)
	o.mu.Unlock()

	return o.fanOut(ctx, gen, filters, 1, SortDesc)
}

// beginLocked opens a new generation and marks every section loading.
func (o *Orchestrator) beginLocked(filters Filters, page int, sort SortDirection) uint64 {
	o.generation++
	gen := o.generation
	o.comparable = false
	o.result.Generation = gen
	o.result.State = StateFetching
	o.result.AppliedFilters = filters
	o.result.Page = page
	o.result.Sort = sort
	o.result.Current.Loading, o.result.Current.Error = true, ""
	o.result.Previous.Loading, o.result.Previous.Error = true, ""
	o.result.Events.Loading, o.result.Events.Error = true, ""
	o.refreshKPI()
	return gen
}

func (o *Orchestrator) fanOut(ctx context.Context, gen uint64, filters Filters, page int, sort SortDirection) Result {
	o.metrics.RunStarted()
	o.logger.Debug("history run started", "generation", gen, "page", page, "sort", sort)

	previous, hasPrevious := PreviousRange(filters)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		points, err := o.fetcher.FetchDaily(ctx, DailyQuery{
			Filters: filters,
			Range:   Range{StartDate: filters.StartDate, EndDate: filters.EndDate},
		})
		o.settleCurrent(gen, filters, points, err)
	}()
	go func() {
		defer wg.Done()
		items, err := o.fetcher.FetchEvents(ctx, EventsQuery{
			Filters:  filters,
			Page:     page,
			PageSize: o.cfg.PageSize,
			Sort:     sort,
		})
		o.settleEvents(gen, page, items, err)
	}()
	if hasPrevious {
		wg.Add(1)
		go func() {
			defer wg.Done()
			points, err := o.fetcher.FetchDaily(ctx, DailyQuery{Filters: filters, Range: previous})
			o.settlePrevious(gen, &previous, points, err)
		}()
	} else {
		o.settlePrevious(gen, nil, nil, nil)
	}
	wg.Wait()

	return o.Snapshot()
}

// Apply runs a new filter set from page one, keeping the sort direction.
func (o *Orchestrator) Apply(ctx context.Context, filters Filters) Result {
	sort := o.Snapshot().Sort
	return o.Run(ctx, filters, 1, sort)
}

// ChangePage moves to page. Requests below one, beyond the known last page
// or for the page already shown are ignored and report false.
func (o *Orchestrator) ChangePage(ctx context.Context, page int) (Result, bool) {
	snap := o.Snapshot()
	if page < 1 || page == snap.Page || page > snap.Events.Data.Pagination.TotalPages {
		return snap, false
	}
	return o.Run(ctx, snap.AppliedFilters, page, snap.Sort), true
}

// ToggleSort flips the sort direction and returns to page one.
func (o *Orchestrator) ToggleSort(ctx context.Context) Result {
	snap := o.Snapshot()
	return o.Run(ctx, snap.AppliedFilters, 1, snap.Sort.Toggle())
}

// Reset restores the default filters and descending order.
func (o *Orchestrator) Reset(ctx context.Context) Result {
	return o.Run(ctx, o.DefaultFilters(), 1, SortDesc)
}

func (o *Orchestrator) settleCurrent(gen uint64, filters Filters, points []DailyPoint, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isCurrent(gen, "current") {
		return
	}
	section := Section[SeriesData]{Data: SeriesData{
		Range:  &Range{StartDate: filters.StartDate, EndDate: filters.EndDate},
		Points: []DailyPoint{},
	}}
	if err != nil {
		o.logger.Warn("daily series failed", "generation", gen, "error", err)
		o.metrics.SectionFailed("current")
		section.Error = ErrMsgDaily
	} else {
		dense := Normalize(points, filters.StartDate, filters.EndDate)
		if dense != nil {
			section.Data.Points = dense
		}
		section.Data.Total = SumCounts(dense)
	}
	o.result.Current = section
	o.afterSettle()
}

func (o *Orchestrator) settlePrevious(gen uint64, rng *Range, points []DailyPoint, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isCurrent(gen, "previous") {
		return
	}
	section := Section[SeriesData]{Data: SeriesData{Range: rng, Points: []DailyPoint{}}}
	switch {
	case rng == nil:
		o.comparable = false
	case err != nil:
		o.logger.Warn("comparison series failed", "generation", gen, "error", err)
		o.metrics.SectionFailed("previous")
		o.comparable = false
		section.Error = ErrMsgKPI
	default:
		o.comparable = true
		section.Data.Total = SumCounts(points)
		if dense := Normalize(points, rng.StartDate, rng.EndDate); dense != nil {
			section.Data.Points = dense
		}
	}
	o.result.Previous = section
	o.afterSettle()
}

func (o *Orchestrator) settleEvents(gen uint64, page int, data EventsPage, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isCurrent(gen, "events") {
		return
	}
	section := Section[EventsPage]{}
	if err != nil {
		o.logger.Warn("events page failed", "generation", gen, "error", err)
		o.metrics.SectionFailed("events")
		section.Error = ErrMsgEvents
		section.Data = EventsPage{
			Items:      []EventRow{},
			Pagination: Pagination{Page: page, PageSize: o.cfg.PageSize, TotalItems: 0, TotalPages: 1},
		}
	} else {
		if data.Items == nil {
			data.Items = []EventRow{}
		}
		section.Data = data
	}
	o.result.Events = section
	o.afterSettle()
}

// isCurrent must be called with mu held.
func (o *Orchestrator) isCurrent(gen uint64, section string) bool {
	if gen == o.generation {
		return true
	}
	o.metrics.Superseded()
	o.logger.Debug("discarding superseded section", "section", section, "generation", gen, "latest", o.generation)
	return false
}

func (o *Orchestrator) afterSettle() {
	o.refreshKPI()
	r := &o.result
	if !r.Current.Loading && !r.Previous.Loading && !r.Events.Loading {
		r.State = StateSettled
	}
}

func (o *Orchestrator) refreshKPI() {
	r := &o.result
	kpi := KPI{Loading: r.Current.Loading || r.Previous.Loading}
	if r.Current.Error != "" || r.Previous.Error != "" {
		kpi.Error = ErrMsgKPI
	}
	// A failed current series has no real total to compare.
	comparable := o.comparable && r.Current.Error == ""
	kpi.Trend = ComputeTrend(r.Current.Data.Total, r.Previous.Data.Total, comparable)
	r.KPI = kpi
}

func (o *Orchestrator) emptyResult(filters Filters, page int, sort SortDirection) Result {
	r := Result{
		State:          StateIdle,
		AppliedFilters: filters,
		Page:           page,
		Sort:           sort,
		Current:        Section[SeriesData]{Data: SeriesData{Points: []DailyPoint{}}},
		Previous:       Section[SeriesData]{Data: SeriesData{Points: []DailyPoint{}}},
		Events: Section[EventsPage]{Data: EventsPage{
			Items:      []EventRow{},
			Pagination: Pagination{Page: page, PageSize: o.cfg.PageSize, TotalItems: 0, TotalPages: 1},
		}},
	}
	r.KPI = KPI{Trend: ComputeTrend(0, 0, false)}
	return r
}
