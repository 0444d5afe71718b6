package server

import (
	"net/http"

	"league-tracker/internal/service"
	"league-tracker/internal/window"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// errInvalidInput marks malformed query parameters and request bodies.
var errInvalidInput = errors.New("invalid input")

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type mappedError struct {
	HTTPStatus int
	Status     string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	mapped := mapError(err)
	msg := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, mapped.HTTPStatus, envelope{
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: msg,
			Status:  mapped.Status,
		},
	})
}

func mapError(err error) mappedError {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUpdateInProgress):
		return mappedError{HTTPStatus: http.StatusConflict, Status: "ABORTED"}
	case errors.Is(err, service.ErrPlayerNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Status: "NOT_FOUND"}
	case errors.Is(err, service.ErrInvalidRiotID),
		errors.Is(err, window.ErrUnknownMode),
		errors.Is(err, errInvalidInput),
		errors.As(err, &validationErrs):
		return mappedError{HTTPStatus: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Status: "INTERNAL"}
	}
}
