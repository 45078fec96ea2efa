package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu         sync.Mutex
	daily      func(DailyQuery) ([]DailyPoint, error)
	events     func(EventsQuery) (EventsPage, error)
	dailyCalls []DailyQuery
	eventCalls []EventsQuery
}

func (s *stubFetcher) FetchDaily(_ context.Context, q DailyQuery) ([]DailyPoint, error) {
	s.mu.Lock()
	s.dailyCalls = append(s.dailyCalls, q)
	s.mu.Unlock()
	if s.daily == nil {
		return nil, nil
	}
	return s.daily(q)
}

func (s *stubFetcher) FetchEvents(_ context.Context, q EventsQuery) (EventsPage, error) {
	s.mu.Lock()
	s.eventCalls = append(s.eventCalls, q)
	s.mu.Unlock()
	if s.events == nil {
		return EventsPage{Pagination: Pagination{Page: q.Page, PageSize: q.PageSize, TotalPages: 1}}, nil
	}
	return s.events(q)
}

func newTestOrchestrator(f Fetcher) *Orchestrator {
	o := NewOrchestrator(Config{PageSize: 25, DefaultRangeDays: 7, Location: time.UTC}, f, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o.now = func() time.Time { return time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC) }
	return o
}

var marchFilters = Filters{DTC: "P0300", StartDate: "2024-03-01", EndDate: "2024-03-03"}

func TestRunConsolidatesSections(t *testing.T) {
	f := &stubFetcher{
		daily: func(q DailyQuery) ([]DailyPoint, error) {
			if q.Range.StartDate == "2024-03-01" {
				return []DailyPoint{{Date: "2024-03-02", Count: 5}}, nil
			}
			return []DailyPoint{{Date: "2024-02-28", Count: 2}, {Date: "2024-02-29", Count: 2}}, nil
		},
		events: func(q EventsQuery) (EventsPage, error) {
			return EventsPage{
				Items:      []EventRow{{DTCCode: strPtr("P0300")}},
				Pagination: Pagination{Page: q.Page, PageSize: q.PageSize, TotalItems: 60, TotalPages: 3},
			}, nil
		},
	}
	o := newTestOrchestrator(f)

	res := o.Run(context.Background(), marchFilters, 1, SortDesc)

	require.Equal(t, StateSettled, res.State)
	require.Equal(t, marchFilters, res.AppliedFilters)
	require.False(t, res.Current.Loading)
	require.Empty(t, res.Current.Error)
	require.Len(t, res.Current.Data.Points, 3)
	require.Equal(t, 5, res.Current.Data.Total)
	require.Equal(t, &Range{StartDate: "2024-02-27", EndDate: "2024-02-29"}, res.Previous.Data.Range)
	require.Equal(t, 4, res.Previous.Data.Total)
	require.Len(t, res.Events.Data.Items, 1)
	require.Equal(t, 3, res.Events.Data.Pagination.TotalPages)

	require.False(t, res.KPI.Loading)
	require.Empty(t, res.KPI.Error)
	require.True(t, res.KPI.Trend.Comparable)
	require.Equal(t, 25.0, res.KPI.Trend.Percent)
	require.Equal(t, DirectionUp, res.KPI.Trend.Direction)

	require.Len(t, f.dailyCalls, 2)
	require.Equal(t, []EventsQuery{{Filters: marchFilters, Page: 1, PageSize: 25, Sort: SortDesc}}, f.eventCalls)
}

func TestRunIsolatesEventFailure(t *testing.T) {
	f := &stubFetcher{
		daily: func(DailyQuery) ([]DailyPoint, error) {
			return []DailyPoint{{Date: "2024-03-01", Count: 1}}, nil
		},
		events: func(EventsQuery) (EventsPage, error) {
			return EventsPage{}, errors.New("upstream 502")
		},
	}
	o := newTestOrchestrator(f)

	res := o.Run(context.Background(), marchFilters, 2, SortAsc)

	require.Empty(t, res.Current.Error)
	require.Equal(t, 1, res.Current.Data.Total)
	require.Equal(t, ErrMsgEvents, res.Events.Error)
	require.Empty(t, res.Events.Data.Items)
	require.Equal(t, Pagination{Page: 2, PageSize: 25, TotalItems: 0, TotalPages: 1}, res.Events.Data.Pagination)
	require.Empty(t, res.KPI.Error)
}

func TestRunIsolatesDailyFailure(t *testing.T) {
	f := &stubFetcher{
		daily: func(DailyQuery) ([]DailyPoint, error) {
			return nil, errors.New("timeout")
		},
	}
	o := newTestOrchestrator(f)

	res := o.Run(context.Background(), marchFilters, 1, SortDesc)

	require.Equal(t, ErrMsgDaily, res.Current.Error)
	require.Empty(t, res.Current.Data.Points)
	require.Equal(t, ErrMsgKPI, res.Previous.Error)
	require.Equal(t, ErrMsgKPI, res.KPI.Error)
	require.False(t, res.KPI.Trend.Comparable)
	require.Empty(t, res.Events.Error)
	require.Equal(t, StateSettled, res.State)
}

func TestRunCurrentFailureLeavesTrendUnavailable(t *testing.T) {
	f := &stubFetcher{
		daily: func(q DailyQuery) ([]DailyPoint, error) {
			if q.Range.StartDate == marchFilters.StartDate {
				return nil, errors.New("timeout")
			}
			return []DailyPoint{{Date: "2024-02-28", Count: 4}}, nil
		},
	}
	o := newTestOrchestrator(f)

	res := o.Run(context.Background(), marchFilters, 1, SortDesc)

	require.Equal(t, ErrMsgDaily, res.Current.Error)
	require.Empty(t, res.Previous.Error)
	require.Equal(t, 4, res.Previous.Data.Total)
	require.Equal(t, ErrMsgKPI, res.KPI.Error)
	require.False(t, res.KPI.Trend.Comparable)
	require.Equal(t, DirectionUnavailable, res.KPI.Trend.Direction)
}

func TestRunSkipsComparisonForInvalidRange(t *testing.T) {
	f := &stubFetcher{
		daily: func(DailyQuery) ([]DailyPoint, error) {
			return []DailyPoint{{Date: "2024-03-09", Count: 10}}, nil
		},
	}
	o := newTestOrchestrator(f)

	res := o.Run(context.Background(), Filters{StartDate: "2024-03-09", EndDate: "2024-03-01"}, 1, SortDesc)

	require.Len(t, f.dailyCalls, 1, "comparison fetch is skipped")
	require.Nil(t, res.Previous.Data.Range)
	require.Zero(t, res.Previous.Data.Total)
	require.Empty(t, res.Previous.Error)
	require.Equal(t, 10, res.Current.Data.Total, "sparse input passes through unchanged")
	require.Equal(t, DirectionUnavailable, res.KPI.Trend.Direction)
}

func TestRunDiscardsSupersededSections(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &stubFetcher{
		events: func(q EventsQuery) (EventsPage, error) {
			if q.Filters.DTC == "OLD" {
				close(started)
				<-release
				return EventsPage{Items: []EventRow{{DTCCode: strPtr("OLD")}}, Pagination: Pagination{Page: 1, PageSize: 25, TotalItems: 1, TotalPages: 1}}, nil
			}
			return EventsPage{Items: []EventRow{{DTCCode: strPtr("NEW")}}, Pagination: Pagination{Page: 1, PageSize: 25, TotalItems: 1, TotalPages: 1}}, nil
		},
	}
	o := newTestOrchestrator(f)

	done := make(chan Result)
	go func() {
		done <- o.Run(context.Background(), Filters{DTC: "OLD", StartDate: "2024-03-01", EndDate: "2024-03-02"}, 1, SortDesc)
	}()
	<-started

	latest := o.Run(context.Background(), Filters{DTC: "NEW", StartDate: "2024-03-01", EndDate: "2024-03-02"}, 1, SortDesc)
	require.Equal(t, uint64(2), latest.Generation)
	require.Equal(t, "NEW", *latest.Events.Data.Items[0].DTCCode)

	close(release)
	stale := <-done
	require.Equal(t, uint64(2), stale.Generation)

	snap := o.Snapshot()
	require.Equal(t, "NEW", snap.AppliedFilters.DTC)
	require.Equal(t, "NEW", *snap.Events.Data.Items[0].DTCCode)
	require.Equal(t, StateSettled, snap.State)
}

func TestChangePageGuards(t *testing.T) {
	f := &stubFetcher{
		events: func(q EventsQuery) (EventsPage, error) {
			return EventsPage{Pagination: Pagination{Page: q.Page, PageSize: 25, TotalItems: 70, TotalPages: 3}}, nil
		},
	}
	o := newTestOrchestrator(f)
	o.Run(context.Background(), marchFilters, 1, SortAsc)

	for _, page := range []int{0, 1, 4} {
		_, moved := o.ChangePage(context.Background(), page)
		require.False(t, moved, page)
	}
	require.Len(t, f.eventCalls, 1)

	res, moved := o.ChangePage(context.Background(), 3)
	require.True(t, moved)
	require.Equal(t, 3, res.Page)
	require.Equal(t, SortAsc, f.eventCalls[1].Sort)
	require.Equal(t, marchFilters, f.eventCalls[1].Filters)
}

func TestToggleSortAndApply(t *testing.T) {
	f := &stubFetcher{}
	o := newTestOrchestrator(f)
	o.Run(context.Background(), marchFilters, 2, SortDesc)

	res := o.ToggleSort(context.Background())
	require.Equal(t, SortAsc, res.Sort)
	require.Equal(t, 1, res.Page)

	next := Filters{Customer: "ACME", StartDate: "2024-02-01", EndDate: "2024-02-10"}
	res = o.Apply(context.Background(), next)
	require.Equal(t, next, res.AppliedFilters)
	require.Equal(t, SortAsc, res.Sort)
	require.Equal(t, 1, res.Page)
}

func TestResetUsesDefaultRange(t *testing.T) {
	f := &stubFetcher{}
	o := newTestOrchestrator(f)
	o.Run(context.Background(), marchFilters, 2, SortAsc)

	res := o.Reset(context.Background())

	require.Equal(t, Filters{StartDate: "2024-03-04", EndDate: "2024-03-10"}, res.AppliedFilters)
	require.Equal(t, SortDesc, res.Sort)
	require.Equal(t, 1, res.Page)
}

func TestNewOrchestratorStartsIdle(t *testing.T) {
	o := newTestOrchestrator(&stubFetcher{})
	snap := o.Snapshot()
	require.Equal(t, StateIdle, snap.State)
	require.Equal(t, 1, snap.Events.Data.Pagination.TotalPages)
	require.NotNil(t, snap.Events.Data.Items)
}

func TestLoadDefaultsFetchesOnce(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &stubFetcher{
		events: func(q EventsQuery) (EventsPage, error) {
			close(started)
			<-release
			return EventsPage{Items: []EventRow{}, Pagination: Pagination{Page: q.Page, PageSize: q.PageSize, TotalPages: 1}}, nil
		},
	}
	o := newTestOrchestrator(f)

	done := make(chan Result)
	go func() { done <- o.LoadDefaults(context.Background()) }()
	<-started

	pending := o.LoadDefaults(context.Background())
	require.Equal(t, StateFetching, pending.State)
	require.Equal(t, uint64(1), pending.Generation)

	close(release)
	first := <-done
	require.Equal(t, StateSettled, first.State)
	require.Equal(t, Filters{StartDate: "2024-03-04", EndDate: "2024-03-10"}, first.AppliedFilters)

	again := o.LoadDefaults(context.Background())
	require.Equal(t, first.Generation, again.Generation)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.eventCalls, 1)
}
