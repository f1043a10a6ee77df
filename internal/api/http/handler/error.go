package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/auth-server/internal/model"
)

type messageResponse struct {
	Message string `json:"message"`
}

// handleError maps service errors to HTTP statuses. Everything unexpected
// collapses into a 500 with a generic message.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, messageResponse{Message: "user already exists"})
	case errors.Is(err, model.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid credentials"})
	case errors.Is(err, model.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "unauthorized"})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, messageResponse{Message: "forbidden"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "not found"})
	case errors.Is(err, model.ErrInvalidIdentity):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid external identity"})
	default:
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
