package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/ratelimit"
	"github.com/waitless/waitless-backend-go/internal/pkg/sse"
)

// RateLimitTotals reads cumulative allow/deny counts. Implemented by
// ratelimit.RedisStats.
type RateLimitTotals interface {
	Totals(ctx context.Context) (allowed, denied int64, err error)
}

type AdminHandler interface {
	RuntimeStats(w http.ResponseWriter, r *http.Request)
}

type AdminHandlerImpl struct {
	limiter *ratelimit.Store
	totals  RateLimitTotals // nil without Redis
	hub     *sse.Hub
}

func NewAdminHandler(limiter *ratelimit.Store, totals RateLimitTotals, hub *sse.Hub) AdminHandler {
	return &AdminHandlerImpl{limiter: limiter, totals: totals, hub: hub}
}

type RuntimeStatsResponse struct {
	RPS            float64 `json:"rps"`
	Burst          int     `json:"burst"`
	TrackedKeys    int     `json:"tracked_keys"`
	StatsEnabled   bool    `json:"stats_enabled"`
	TotalAllowed   int64   `json:"total_allowed"`
	TotalDenied    int64   `json:"total_denied"`
	SSESubscribers int     `json:"sse_subscribers"`
}

// RuntimeStats handles GET /admin/stats
func (h *AdminHandlerImpl) RuntimeStats(w http.ResponseWriter, r *http.Request) {
	resp := RuntimeStatsResponse{
		RPS:            h.limiter.RPS(),
		Burst:          h.limiter.Burst(),
		TrackedKeys:    h.limiter.Len(),
		SSESubscribers: h.hub.TotalSubscribers(),
	}

	if h.totals != nil {
		allowed, denied, err := h.totals.Totals(r.Context())
		if err != nil {
			slog.Warn("Failed to read rate limit totals", "error", err)
		} else {
			resp.StatsEnabled = true
			resp.TotalAllowed = allowed
			resp.TotalDenied = denied
		}
	}

	response.Success(w, resp)
}
