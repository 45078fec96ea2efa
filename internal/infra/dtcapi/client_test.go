package dtcapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dtcinsights/dtc-insights/internal/domain/assistant"
	"github.com/dtcinsights/dtc-insights/internal/domain/history"
	"github.com/dtcinsights/dtc-insights/internal/domain/overview"
	"github.com/dtcinsights/dtc-insights/pkg/metrics"
)

func newTestClient(t *testing.T, srv *httptest.Server, attempts int) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL:     srv.URL + "/",
		APIKey:      "secret",
		Timeout:     time.Second,
		MaxAttempts: attempts,
		BaseBackoff: time.Millisecond,
	}, metrics.NewUpstream(prometheus.NewRegistry()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func TestFetchDailyNormalizesShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/history/daily", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-API-Key"))
		q := r.URL.Query()
		require.Equal(t, "P0300", q.Get("dtc"))
		require.Equal(t, "2024-02-27", q.Get("start_date"))
		require.Equal(t, "2024-02-29", q.Get("end_date"))
		require.False(t, q.Has("chassi"), "empty filters are omitted")
		require.False(t, q.Has("customer"))
		_, _ = w.Write([]byte(`{"points":[
			{"event_date":"2024-02-28","total_count":3,"breakdown":[{"dtc":"P0300","count":3}]},
			{"date":"2024-02-29","count":2},
			{"total_count":9}
		]}`))
	}))
	defer srv.Close()

	points, err := newTestClient(t, srv, 1).FetchDaily(context.Background(), history.DailyQuery{
		Filters: history.Filters{DTC: "P0300", StartDate: "2024-03-01", EndDate: "2024-03-03"},
		Range:   history.Range{StartDate: "2024-02-27", EndDate: "2024-02-29"},
	})
	require.NoError(t, err)
	require.Equal(t, []history.DailyPoint{
		{Date: "2024-02-28", Count: 3, Breakdown: []history.BreakdownItem{{Code: "P0300", Count: 3}}},
		{Date: "2024-02-29", Count: 2, Breakdown: []history.BreakdownItem{}},
	}, points)
}

func TestDecodeDailyAcceptsBareArray(t *testing.T) {
	points, err := decodeDaily(json.RawMessage(`[{"date":"2024-01-01","count":1}]`))
	require.NoError(t, err)
	require.Len(t, points, 1)

	points, err = decodeDaily(json.RawMessage(`null`))
	require.NoError(t, err)
	require.Empty(t, points)
}

func TestFetchEventsMapsRowsAndPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "25", q.Get("page_size"))
		require.Equal(t, "asc", q.Get("order"))
		require.Equal(t, "7VT04251", q.Get("chassi"))
		_, _ = w.Write([]byte(`{"items":[{"timestamp":"2024-03-02T17:05:00Z","customer_name":"ACME","chassi_last8":"7VT04251","dtc":"P0300","status":null},{"timestamp":"garbage"}],
			"pagination":{"page":2,"pageSize":25,"totalItems":27,"totalPages":2}}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv, 1).FetchEvents(context.Background(), history.EventsQuery{
		Filters:  history.Filters{Chassi: "7VT04251"},
		Page:     2,
		PageSize: 25,
		Sort:     history.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, time.Date(2024, time.March, 2, 17, 5, 0, 0, time.UTC), page.Items[0].Timestamp.UTC())
	require.Equal(t, "P0300", *page.Items[0].DTCCode)
	require.Nil(t, page.Items[0].Status)
	require.Nil(t, page.Items[1].Timestamp)
	require.Equal(t, history.Pagination{Page: 2, PageSize: 25, TotalItems: 27, TotalPages: 2}, page.Pagination)
}

func TestFetchEventsSynthesizesMissingPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{},{},{}]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv, 1).FetchEvents(context.Background(), history.EventsQuery{Page: 4, PageSize: 25})
	require.NoError(t, err)
	require.Equal(t, history.Pagination{Page: 4, PageSize: 25, TotalItems: 3, TotalPages: 1}, page.Pagination)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"points":[]}`))
	}))
	defer srv.Close()

	points, err := newTestClient(t, srv, 3).FetchDaily(context.Background(), history.DailyQuery{})
	require.NoError(t, err)
	require.Empty(t, points)
	require.EqualValues(t, 3, calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"bad filter"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, 3).FetchEvents(context.Background(), history.EventsQuery{})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.EqualValues(t, 1, calls.Load())
}

func TestFetchOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/overview/dtc-events", r.URL.Path)
		require.Equal(t, "2024-03-02", r.URL.Query().Get("event_date"))
		require.Equal(t, "30", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"items":[{"customer_name":"ACME","chassi_last8":"7VT04251","dtc_count":2,
			"most_recent":"2024-03-02T10:00:00","events":[{"dtc":"P0300","lat":-23.5,"lon":-46.6,"imei":"359"}]}]}`))
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, 1).FetchOverview(context.Background(), overview.Query{EventDate: "2024-03-02", Days: 30})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].DTCCount)
	require.Equal(t, time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC), *items[0].MostRecent)
	require.InDelta(t, -23.5, *items[0].Events[0].Lat, 1e-9)
}

func TestChatSendsSnakeCaseAndExtractsDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["message"] == "fail" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"}]}`))
			return
		}
		require.Equal(t, "ABC1D23", body["vehicle_key"])
		require.Nil(t, body["customer_name"])
		require.EqualValues(t, 24, body["hours"])
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv, 3)

	reply, err := client.Chat(context.Background(), assistant.Request{Message: "oi", VehicleKey: "ABC1D23", Hours: 24, Minutes: 60, Days: 30})
	require.NoError(t, err)
	require.Equal(t, "ok", reply)

	_, err = client.Chat(context.Background(), assistant.Request{Message: "fail"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "field required", apiErr.Detail())
}

func TestExtractDetail(t *testing.T) {
	require.Equal(t, "not found", extractDetail([]byte(`{"detail":"not found"}`)))
	require.Equal(t, "quota", extractDetail([]byte(`{"message":"quota"}`)))
	require.Empty(t, extractDetail([]byte(`<html>`)))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
