package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"taskboard/auth"
	"taskboard/models"
	"taskboard/session"
	"taskboard/tasks"
	"taskboard/utilities"
)

// Handler serves the board's HTTP API.
type Handler struct {
	Gate     *auth.Gate
	Tasks    *tasks.Service
	Sessions *session.Manager
}

func New(gate *auth.Gate, svc *tasks.Service, sessions *session.Manager) *Handler {
	return &Handler{Gate: gate, Tasks: svc, Sessions: sessions}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utilities.LogError(err, "Encoding response")
	}
}

// writeError maps core errors onto HTTP statuses. Anything unrecognised is a 500.
func writeError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, models.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "you can only change your own tasks"})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "task not found"})
	case errors.Is(err, models.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Field: "email"})
	default:
		utilities.LogError(err, "Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// bind fills dst from a JSON body, or from form values through fromForm.
func bind(r *http.Request, dst interface{}, fromForm func(get func(string) string)) error {
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return &models.ValidationError{Message: "malformed JSON body"}
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return &models.ValidationError{Message: "malformed form body"}
	}
	fromForm(r.PostForm.Get)
	return nil
}
