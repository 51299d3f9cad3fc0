package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		Unauthorized(w, "Refresh token revoked")
	case errors.Is(err, auth.ErrRefreshTokenCookieNotFound),
		errors.Is(err, auth.ErrRefreshTokenCookieEmpty):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, jwt.ErrNoActor):
		Unauthorized(w, "Authentication required")
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		Conflict(w, "Email already registered")
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, auth.ErrOAuthNotConfigured):
		ServiceUnavailable(w, "Google sign-in is not configured")
	case errors.Is(err, auth.ErrOAuthStateMismatch):
		BadRequest(w, "OAuth state mismatch", nil)

	// User / permission errors
	case errors.Is(err, user.ErrUserEmailExists):
		Conflict(w, "Email already registered")
	case errors.Is(err, user.ErrOwnerAccessRequired),
		errors.Is(err, user.ErrStaffAccessRequired),
		errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Location domain errors
	case errors.Is(err, location.ErrLocationNotFound):
		NotFound(w, "Location not found")
	case errors.Is(err, location.ErrLocationSlugExists):
		Conflict(w, "Location slug already exists")
	case errors.Is(err, location.ErrLocationInactive):
		Conflict(w, "Location is inactive")
	case errors.Is(err, location.ErrLocationAccessDenied):
		Forbidden(w, "No access to this location")
	case errors.Is(err, location.ErrStaffEmailExists):
		Conflict(w, "Email already registered")

	// Counter domain errors
	case errors.Is(err, counter.ErrCounterNotFound):
		NotFound(w, "Counter not found")
	case errors.Is(err, counter.ErrCounterPrefixExists):
		Conflict(w, "Counter prefix already used at this location")
	case errors.Is(err, counter.ErrCounterHasTickets):
		Conflict(w, "Counter has tickets and can only be deactivated")

	// Ticket domain errors
	case errors.Is(err, ticket.ErrTicketNotFound):
		NotFound(w, "Ticket not found")
	case errors.Is(err, ticket.ErrQueueEmpty):
		NotFound(w, "No waiting tickets for this counter")
	case errors.Is(err, ticket.ErrTicketAccessDenied):
		Forbidden(w, "No access to this ticket")
	case errors.Is(err, ticket.ErrInvalidTransition),
		errors.Is(err, ticket.ErrCounterInactive),
		errors.Is(err, ticket.ErrCounterClosed),
		errors.Is(err, ticket.ErrCounterFull),
		errors.Is(err, ticket.ErrCounterBusy),
		errors.Is(err, ticket.ErrTicketNumberConflict):
		Conflict(w, err.Error())

	// Summary domain errors
	case errors.Is(err, summary.ErrInvalidDateRange),
		errors.Is(err, summary.ErrRangeTooLarge):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
