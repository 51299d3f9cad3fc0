package http

import (
	"net/http"
	"strconv"

	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
)

// queryString returns a pointer to a non-empty query value, or nil.
func queryString(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// pageParams reads page and limit. Invalid values are ignored and left to
// the service defaults.
func pageParams(r *http.Request) (page, limit int) {
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	return page, limit
}

func meta(page, limit int, total int64, totalPages int) *response.Meta {
	return &response.Meta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
