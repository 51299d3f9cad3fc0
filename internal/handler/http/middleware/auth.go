package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/handler/http/response"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
)

// actorFromRequest decodes the verified access token into an Actor.
func actorFromRequest(r *http.Request) (jwt.Actor, error) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return jwt.Actor{}, auth.ErrInvalidToken
	}
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return jwt.Actor{}, auth.ErrInvalidToken
	}
	actor, err := jwt.ActorFromClaims(claims)
	if err != nil {
		return jwt.Actor{}, auth.ErrInvalidToken
	}
	return actor, nil
}

// AuthRequired rejects requests without a valid access token and stores
// the caller on the request context. Must run after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := jwtauth.FromContext(r.Context()); err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(jwt.WithActor(r.Context(), actor)))
	}
	return http.HandlerFunc(hfn)
}

// OptionalAuth stores the caller when a valid access token is present and
// lets anonymous requests through unchanged.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, err := actorFromRequest(r); err == nil {
			r = r.WithContext(jwt.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
