package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtcinsights/dtc-insights/internal/domain/history"
)

// historyQuery is the query string of the stateless history endpoints.
type historyQuery struct {
	Chassi    string `form:"chassi"`
	Customer  string `form:"customer"`
	DTC       string `form:"dtc"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Page      int    `form:"page"`
	Sort      string `form:"sort"`
}

type pageRequest struct {
	Page int `json:"page"`
}

// History runs one detached query cycle and returns the consolidated result.
func (h *Handler) History(c *gin.Context) {
	result, ok := h.runStateless(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// HistoryExport runs one detached query cycle and serves the loaded page as CSV.
func (h *Handler) HistoryExport(c *gin.Context) {
	result, ok := h.runStateless(c)
	if !ok {
		return
	}
	h.writeExport(c, result.Events.Data.Items)
}

// HistoryView returns the caller's view, loading the default range first
// when the view has never run.
func (h *Handler) HistoryView(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.views.For(claims.UserID).LoadDefaults(c.Request.Context()))
}

// HistoryApply applies a filter draft to the caller's view.
func (h *Handler) HistoryApply(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	var draft history.Filters
	if err := c.ShouldBindJSON(&draft); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	o := h.views.For(claims.UserID)
	filters, err := cleanFilters(draft, o.DefaultFilters(), h.cfg.MaxRangeDays)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, o.Apply(c.Request.Context(), filters))
}

// HistoryPage moves the caller's view to another page. Out of range pages
// leave the view untouched.
func (h *Handler) HistoryPage(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	result, _ := h.views.For(claims.UserID).ChangePage(c.Request.Context(), req.Page)
	c.JSON(http.StatusOK, result)
}

// HistorySort flips the event order of the caller's view.
func (h *Handler) HistorySort(c *gin.Context) {
	h.withView(c, func(ctx context.Context, o *history.Orchestrator) history.Result {
		return o.ToggleSort(ctx)
	})
}

// HistoryReset restores the default filters of the caller's view.
func (h *Handler) HistoryReset(c *gin.Context) {
	h.withView(c, func(ctx context.Context, o *history.Orchestrator) history.Result {
		return o.Reset(ctx)
	})
}

// HistoryViewExport serves the rows currently loaded in the caller's view.
func (h *Handler) HistoryViewExport(c *gin.Context) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	h.writeExport(c, h.views.For(claims.UserID).Snapshot().Events.Data.Items)
}

func (h *Handler) withView(c *gin.Context, fn func(context.Context, *history.Orchestrator) history.Result) {
	claims, ok := mustClaims(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, fn(c.Request.Context(), h.views.For(claims.UserID)))
}

func (h *Handler) runStateless(c *gin.Context) (history.Result, bool) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return history.Result{}, false
	}
	o := h.views.New()
	filters, err := cleanFilters(history.Filters{
		Chassi:    q.Chassi,
		Customer:  q.Customer,
		DTC:       q.DTC,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	}, o.DefaultFilters(), h.cfg.MaxRangeDays)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return history.Result{}, false
	}
	return o.Run(c.Request.Context(), filters, q.Page, history.ParseSort(q.Sort)), true
}

// writeExport answers 204 when there is nothing to export. Archive failures
// are logged and never block the download.
func (h *Handler) writeExport(c *gin.Context, rows []history.EventRow) {
	exp, ok := history.BuildExport(rows, h.now(), h.cfg.Location)
	if !ok {
		h.metrics.Exported("empty")
		c.Status(http.StatusNoContent)
		return
	}
	h.metrics.Exported("written")

	if h.archive != nil {
		owner := "anonymous"
		if claims, ok := getClaims(c); ok {
			owner = strconv.FormatInt(claims.UserID, 10)
		}
		key, err := h.archive.Save(c.Request.Context(), owner, exp)
		if err != nil {
			h.metrics.Exported("archive_failed")
			h.logger.Warn("export archive failed", "owner", owner, "error", err)
		} else {
			h.metrics.Exported("archived")
			c.Header("X-Export-Key", key)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	c.Data(http.StatusOK, history.ExportContentType, exp.Content)
}

// cleanFilters trims the draft, validates date keys and falls back to the
// default range when no date is given. A complete range longer than
// maxDays is rejected.
func cleanFilters(draft, defaults history.Filters, maxDays int) (history.Filters, error) {
	f := history.Filters{
		Chassi:    strings.TrimSpace(draft.Chassi),
		Customer:  strings.TrimSpace(draft.Customer),
		DTC:       strings.TrimSpace(draft.DTC),
		StartDate: strings.TrimSpace(draft.StartDate),
		EndDate:   strings.TrimSpace(draft.EndDate),
	}
	if f.StartDate == "" && f.EndDate == "" {
		f.StartDate, f.EndDate = defaults.StartDate, defaults.EndDate
		return f, nil
	}
	for _, key := range []string{f.StartDate, f.EndDate} {
		if key == "" {
			continue
		}
		if _, ok := history.FromKey(key); !ok {
			return history.Filters{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", key)
		}
	}
	if start, end, ok := history.ParseRange(f.StartDate, f.EndDate); ok && maxDays > 0 {
		if history.DayDifference(start, end)+1 > maxDays {
			return history.Filters{}, fmt.Errorf("date range cannot exceed %d days", maxDays)
		}
	}
	return f, nil
}
