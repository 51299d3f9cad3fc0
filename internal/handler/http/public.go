package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/sse"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

// PublicHandler serves kiosks, display screens and anonymous visitors.
type PublicHandler interface {
	GetLocation(w http.ResponseWriter, r *http.Request)
	Board(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
	Track(w http.ResponseWriter, r *http.Request)
	Issue(w http.ResponseWriter, r *http.Request)
}

type PublicHandlerImpl struct {
	locationService location.LocationService
	ticketService   ticket.TicketService
	hub             *sse.Hub
	keepAlive       time.Duration
}

func NewPublicHandler(locationService location.LocationService, ticketService ticket.TicketService, hub *sse.Hub) PublicHandler {
	return &PublicHandlerImpl{
		locationService: locationService,
		ticketService:   ticketService,
		hub:             hub,
		keepAlive:       15 * time.Second,
	}
}

// GetLocation handles GET /public/locations/{id}, where id may also be the slug.
func (h *PublicHandlerImpl) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.locationService.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, loc)
}

// Board handles GET /public/locations/{id}/board
func (h *PublicHandlerImpl) Board(w http.ResponseWriter, r *http.Request) {
	id, ok := locationID(w, r)
	if !ok {
		return
	}

	board, err := h.ticketService.Board(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, board)
}

// Track handles GET /public/tickets/{code}
func (h *PublicHandlerImpl) Track(w http.ResponseWriter, r *http.Request) {
	status, err := h.ticketService.Track(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, status)
}

// Issue handles POST /public/tickets. Rate limited per client in the router.
func (h *PublicHandlerImpl) Issue(w http.ResponseWriter, r *http.Request) {
	var req ticket.IssueTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("PublicIssue decode error", "error", err)
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

// Stream handles GET /public/locations/{id}/stream as Server-Sent Events.
func (h *PublicHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid location ID", nil)
		return
	}
	if _, err := h.locationService.GetPublic(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming unsupported")
		return
	}

	events, unsubscribe := h.hub.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "retry: 3000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	slog.Debug("SSE client connected", "location_id", id, "subscribers", h.hub.SubscriberCount(id))
	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "location_id", id)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := ev.WriteTo(w); err != nil {
				slog.Warn("SSE write failed", "location_id", id, "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
