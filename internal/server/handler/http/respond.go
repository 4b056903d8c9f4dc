package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps err to its HTTP status and the domain error rendered to
// the client. Non-domain errors render as ErrInternal.
func statusFor(err error) (int, *apperr.Error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, apperr.ErrInternal
	}
	switch e {
	case apperr.ErrInvalidCredentials, apperr.ErrUnauthorized, apperr.ErrInvalidCurrentPassword:
		return http.StatusUnauthorized, e
	case apperr.ErrInvalidToken, apperr.ErrExpiredToken:
		return http.StatusBadRequest, apperr.ErrInvalidToken
	case apperr.ErrRateLimited:
		return http.StatusTooManyRequests, e
	case apperr.ErrStorage, apperr.ErrInternal:
		return http.StatusInternalServerError, e
	}
	return http.StatusBadRequest, e
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, e := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: e.Message, Code: e.Code})
}

// decodeJSON reads a JSON body into v. Malformed bodies are ErrBadRequest.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ErrBadRequest
	}
	return nil
}
