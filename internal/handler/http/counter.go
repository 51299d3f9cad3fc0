package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type CounterHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	ListByLocation(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type CounterHandlerImpl struct {
	counterService counter.CounterService
}

func NewCounterHandler(counterService counter.CounterService) CounterHandler {
	return &CounterHandlerImpl{counterService: counterService}
}

func counterID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "counterID")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid counter ID", nil)
		return "", false
	}
	return id, true
}

// Create handles POST /locations/{id}/counters
func (h *CounterHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	locID, ok := locationID(w, r)
	if !ok {
		return
	}

	var req counter.CreateCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateCounter decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.LocationID = locID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	created, err := h.counterService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Counter created successfully", created)
}

// ListByLocation handles GET /locations/{id}/counters
func (h *CounterHandlerImpl) ListByLocation(w http.ResponseWriter, r *http.Request) {
	locID, ok := locationID(w, r)
	if !ok {
		return
	}

	counters, err := h.counterService.ListByLocation(r.Context(), locID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, counters)
}

// Get handles GET /counters/{counterID}
func (h *CounterHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	c, err := h.counterService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, c)
}

// Update handles PATCH /counters/{counterID}
func (h *CounterHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	var req counter.UpdateCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateCounter decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = id

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	updated, err := h.counterService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Counter updated successfully", updated)
}

// Delete handles DELETE /counters/{counterID}
func (h *CounterHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	if err := h.counterService.Delete(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Counter deleted successfully", nil)
}
