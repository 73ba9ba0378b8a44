package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"JobWatch/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

type errorBody struct {
	OK      bool              `json:"ok"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Report  *domain.RunReport `json:"report,omitempty"`
}

// WriteError maps err onto a status code and writes it as JSON.
func WriteError(w http.ResponseWriter, err error) {
	code, errCode := statusFor(err)
	WriteJSON(w, code, errorBody{Error: errCode, Message: err.Error()})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound):
		return http.StatusNotFound, "source_not_found"
	case errors.Is(err, domain.ErrSourceExists):
		return http.StatusConflict, "source_exists"
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict, "run_in_progress"
	case errors.Is(err, domain.ErrInvalidSource):
		return http.StatusBadRequest, "invalid_source"
	case errors.Is(err, domain.ErrSourceUnreachable):
		return http.StatusBadGateway, "source_unreachable"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
