// Package httpapi exposes the REST surface: request decoding, the mapping
// from service sentinel errors to HTTP statuses, and the router wiring.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/contacthub/contacthub/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeValidationError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError translates a service sentinel into an HTTP status. Credential
// and token failures collapse into 401 so the response never reveals which
// check failed.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "account already exists"})
	case errors.Is(err, common.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
	case errors.Is(err, common.ErrAccountUnverified):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "email not confirmed"})
	case errors.Is(err, common.ErrTooManyAttempts):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again later"})
	case isTokenError(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
	case errors.Is(err, common.ErrorUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// writeLinkError is writeError for the emailed one-time links, where a bad
// token is a bad payload rather than missing credentials.
func writeLinkError(w http.ResponseWriter, err error) {
	if !isTokenError(err) {
		writeError(w, err)
		return
	}
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "link expired"})
	case errors.Is(err, common.ErrTokenConsumed):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "link already used"})
	default:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid link"})
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, common.ErrInvalidToken) ||
		errors.Is(err, common.ErrTokenExpired) ||
		errors.Is(err, common.ErrBadSignature) ||
		errors.Is(err, common.ErrWrongTokenKind) ||
		errors.Is(err, common.ErrTokenConsumed)
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
