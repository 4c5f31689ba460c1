package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bodycheck/internal/assessment"
	"bodycheck/internal/capture"
	"bodycheck/internal/history"
	"bodycheck/internal/models"
	"bodycheck/internal/report"
	"bodycheck/internal/voice"
)

var errSessionNotFound = errors.New("session not found")

type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *models.ValidationError
	var transition *assessment.TransitionError
	var acquisition *capture.AcquisitionError
	switch {
	case errors.As(err, &validation):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: validation.Message, Field: validation.Field})
	case errors.As(err, &transition):
		WriteError(w, http.StatusConflict, transition.Error())
	case errors.Is(err, errSessionNotFound), errors.Is(err, history.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, history.ErrConfirmationRequired):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrShareUnsupported):
		WriteError(w, http.StatusNotImplemented, report.UnsupportedMessage)
	case errors.Is(err, voice.ErrUnsupported):
		WriteError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, capture.ErrWrongMode),
		errors.Is(err, capture.ErrZoomUnsupported),
		errors.Is(err, assessment.ErrCameraIdle),
		errors.Is(err, assessment.ErrNoReport):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &acquisition):
		WriteError(w, http.StatusServiceUnavailable, acquisition.Error())
	default:
		log.Printf("httpapi: internal error: %v", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
