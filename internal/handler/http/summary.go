package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
)

type SummaryHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Recompute(w http.ResponseWriter, r *http.Request)
}

type SummaryHandlerImpl struct {
	summaryService summary.SummaryService
}

func NewSummaryHandler(summaryService summary.SummaryService) SummaryHandler {
	return &SummaryHandlerImpl{summaryService: summaryService}
}

// List handles GET /summaries?from=&to=&location_id=&counter_id=
func (h *SummaryHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := summary.SummaryFilter{
		LocationID: queryString(r, "location_id"),
		CounterID:  queryString(r, "counter_id"),
		From:       r.URL.Query().Get("from"),
		To:         r.URL.Query().Get("to"),
	}
	filter.Page, filter.Limit = pageParams(r)

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.summaryService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Summaries, meta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// Recompute handles POST /summaries/recompute
func (h *SummaryHandlerImpl) Recompute(w http.ResponseWriter, r *http.Request) {
	var req summary.RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("RecomputeSummaries decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.summaryService.Recompute(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Summaries recomputed", result)
}
