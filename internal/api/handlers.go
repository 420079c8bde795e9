package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/insights"
	"github.com/ignite/region-insights/internal/pkg/httputil"
	"github.com/ignite/region-insights/internal/service/report"
	"github.com/ignite/region-insights/internal/storage"
)

const dateLayout = "2006-01-02"

// errBadParam marks malformed query parameters.
var errBadParam = errors.New("invalid parameter")

// ReportService is the report layer as seen by the handlers.
type ReportService interface {
	Regions() []domain.RegionInfo
	Thresholds() insights.Thresholds
	DefaultQuery(days int) report.Query
	Overview(ctx context.Context, q report.Query) (*report.Report, error)
	Generate(ctx context.Context, q report.Query) (*report.Report, error)
	Review(ctx context.Context, region domain.Region, q report.Query) (*insights.Review, error)
	ReviewAll(ctx context.Context, q report.Query) ([]insights.Review, error)
	Publish(ctx context.Context, r *report.Report) error
}

// Archive is the read side of the report archive.
type Archive interface {
	Latest(ctx context.Context) (*report.Report, error)
	AlertHistory(ctx context.Context, region domain.Region, from, to time.Time) ([]storage.AlertRecord, error)
}

// Handlers serves the report endpoints.
type Handlers struct {
	reports    ReportService
	archive    Archive
	windowDays int
}

// NewHandlers creates the handlers. archive may be nil, in which case the
// archive endpoints answer 503.
func NewHandlers(reports ReportService, archive Archive, windowDays int) *Handlers {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &Handlers{reports: reports, archive: archive, windowDays: windowDays}
}

// GetRegions lists the tracked regions with their display metadata.
//
//	GET /api/regions
func (h *Handlers) GetRegions(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"regions":    h.reports.Regions(),
		"thresholds": h.reports.Thresholds(),
	})
}

// GetOverview returns the full cross-region report.
//
//	GET /api/overview?from=2026-01-01&to=2026-03-31&regions=us,uk
func (h *Handlers) GetOverview(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.reports.Overview(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, rep)
}

// GetAlerts returns only the alert section of the report.
//
//	GET /api/alerts
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.reports.Overview(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"report_id":        rep.ID,
		"generated_at":     rep.GeneratedAt,
		"alerts":           rep.Alerts,
		"inactive_regions": rep.Inactive,
	})
}

// GetRegionReview returns the single-region review.
//
//	GET /api/regions/{code}/review
func (h *Handlers) GetRegionReview(w http.ResponseWriter, r *http.Request) {
	region, err := domain.ParseRegion(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadParam, err))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rv, err := h.reports.Review(r.Context(), region, q)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, rv)
}

// GetReviews reviews every requested region.
//
//	GET /api/reviews
func (h *Handlers) GetReviews(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reviews, err := h.reports.ReviewAll(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"reviews": reviews})
}

// publishRequest is the optional body of a publish call. Dates use the
// same YYYY-MM-DD form as the query parameters.
type publishRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Regions []string `json:"regions"`
}

// PublishReport builds a report and runs it through archive and digest.
//
//	POST /api/reports/publish
func (h *Handlers) PublishReport(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	q, err := h.buildQuery(req.From, req.To, req.Regions)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.reports.Generate(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reports.Publish(r.Context(), rep); err != nil {
		httputil.ErrorWithCode(w, http.StatusBadGateway, "publish_failed",
			sanitizedError(http.StatusBadGateway, err, "report generated but publishing failed"))
		return
	}
	httputil.OK(w, rep)
}

// GetLatestReport returns the most recently archived report.
//
//	GET /api/reports/latest
func (h *Handlers) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		httputil.ServiceUnavailable(w, "report archive not configured")
		return
	}
	rep, err := h.archive.Latest(r.Context())
	if errors.Is(err, storage.ErrNoReport) {
		httputil.NotFound(w, "no report has been published yet")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, rep)
}

// GetAlertHistory returns archived alerts for one region.
//
//	GET /api/regions/{code}/alerts/history?from=...&to=...
func (h *Handlers) GetAlertHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		httputil.ServiceUnavailable(w, "report archive not configured")
		return
	}
	region, err := domain.ParseRegion(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadParam, err))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.archive.AlertHistory(r.Context(), region, q.From, q.To)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"region": region, "history": records})
}

func (h *Handlers) parseQuery(r *http.Request) (report.Query, error) {
	v := r.URL.Query()
	var regions []string
	if raw := strings.TrimSpace(v.Get("regions")); raw != "" {
		regions = strings.Split(raw, ",")
	}
	return h.buildQuery(v.Get("from"), v.Get("to"), regions)
}

// buildQuery fills in the default window for missing bounds. A lone from
// runs to the end of today; a lone to reaches back the default window,
// counting the to day itself.
func (h *Handlers) buildQuery(fromStr, toStr string, regionCodes []string) (report.Query, error) {
	q := h.reports.DefaultQuery(h.windowDays)

	if toStr != "" {
		to, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return q, fmt.Errorf("%w: to must be YYYY-MM-DD", errBadParam)
		}
		q.To = report.EndOfDay(to)
		if fromStr == "" {
			q.From = to.AddDate(0, 0, -(h.windowDays - 1))
		}
	}
	if fromStr != "" {
		from, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return q, fmt.Errorf("%w: from must be YYYY-MM-DD", errBadParam)
		}
		q.From = from
	}

	if len(regionCodes) > 0 {
		regions, err := domain.ParseRegions(regionCodes)
		if err != nil {
			return q, fmt.Errorf("%w: %v", errBadParam, err)
		}
		q.Regions = regions
	}
	return q, nil
}

// writeError maps caller mistakes to 400 and hides everything else.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, report.ErrUnknownRegion),
		errors.Is(err, report.ErrInvalidWindow):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
