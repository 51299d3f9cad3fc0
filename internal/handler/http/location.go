package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type LocationHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	CreateStaff(w http.ResponseWriter, r *http.Request)
	ListStaff(w http.ResponseWriter, r *http.Request)
}

type LocationHandlerImpl struct {
	locationService location.LocationService
}

func NewLocationHandler(locationService location.LocationService) LocationHandler {
	return &LocationHandlerImpl{locationService: locationService}
}

// locationID reads and checks the {id} URL parameter.
func locationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid location ID", nil)
		return "", false
	}
	return id, true
}

// Create implements LocationHandler.
func (h *LocationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req location.CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateLocation decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	created, err := h.locationService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Location created successfully", created)
}

// List implements LocationHandler.
func (h *LocationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	var filter location.LocationFilter
	filter.Search = queryString(r, "search")
	filter.Page, filter.Limit = pageParams(r)

	result, err := h.locationService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Locations, meta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// Get implements LocationHandler.
func (h *LocationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	loc, err := h.locationService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, loc)
}

// Update implements LocationHandler.
func (h *LocationHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	var req location.UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateLocation decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ID = id

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	updated, err := h.locationService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Location updated successfully", updated)
}

// Delete implements LocationHandler.
func (h *LocationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	if err := h.locationService.Delete(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Location deleted successfully", nil)
}

// CreateStaff implements LocationHandler.
func (h *LocationHandlerImpl) CreateStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	var req location.CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateStaff decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.LocationID = id

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	staff, err := h.locationService.CreateStaff(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Staff account created successfully", staff)
}

// ListStaff implements LocationHandler.
func (h *LocationHandlerImpl) ListStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	staff, err := h.locationService.ListStaff(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, staff)
}
