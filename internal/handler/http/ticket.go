package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type TicketHandler interface {
	Issue(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)

	// Transition applies the {action} URL parameter to the ticket
	Transition(w http.ResponseWriter, r *http.Request)
	CallNext(w http.ResponseWriter, r *http.Request)
}

type TicketHandlerImpl struct {
	ticketService ticket.TicketService
}

func NewTicketHandler(ticketService ticket.TicketService) TicketHandler {
	return &TicketHandlerImpl{ticketService: ticketService}
}

func ticketID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "ticketID")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid ticket ID", nil)
		return "", false
	}
	return id, true
}

func ticketFilter(r *http.Request) ticket.TicketFilter {
	filter := ticket.TicketFilter{
		LocationID: queryString(r, "location_id"),
		CounterID:  queryString(r, "counter_id"),
		Status:     queryString(r, "status"),
		Date:       queryString(r, "date"),
		Search:     queryString(r, "search"),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
	}
	filter.Page, filter.Limit = pageParams(r)
	return filter
}

// Issue handles POST /tickets for signed-in visitors and staff walk-ins.
func (h *TicketHandlerImpl) Issue(w http.ResponseWriter, r *http.Request) {
	var req ticket.IssueTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("IssueTicket decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	issued, err := h.ticketService.Issue(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Ticket issued successfully", issued)
}

// List handles GET /tickets
func (h *TicketHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := ticketFilter(r)
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.ticketService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Tickets, meta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// ListMine handles GET /tickets/my
func (h *TicketHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	filter := ticketFilter(r)
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.ticketService.ListMine(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Tickets, meta(result.Page, result.Limit, result.TotalCount, result.TotalPages))
}

// Get handles GET /tickets/{ticketID}
func (h *TicketHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	t, err := h.ticketService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, t)
}

// Events handles GET /tickets/{ticketID}/events
func (h *TicketHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	events, err := h.ticketService.Events(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, events)
}

// Transition handles POST /tickets/{ticketID}/{action}. The body is optional
// and may carry a note (the cancel reason for cancel).
func (h *TicketHandlerImpl) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(w, r)
	if !ok {
		return
	}

	var req ticket.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("TransitionTicket decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.TicketID = id
	req.Action = ticket.Action(chi.URLParam(r, "action"))

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	updated, err := h.ticketService.Transition(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Ticket updated successfully", updated)
}

// CallNext handles POST /counters/{counterID}/call-next
func (h *TicketHandlerImpl) CallNext(w http.ResponseWriter, r *http.Request) {
	id, ok := counterID(w, r)
	if !ok {
		return
	}

	called, err := h.ticketService.CallNext(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Next ticket called", called)
}
