// Package response holds the JSON envelope every gateway handler replies
// with, for errors and payloads alike.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope written on every non-streaming route. Media
// bytes (playback, previews) bypass it.
type Response struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps a single error into the envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError flattens validator failures into one error string, one
// "field: rule" pair per failed tag.
func ValidationError(errs validator.ValidationErrors) Response {
	var sb strings.Builder
	for _, err := range errs {
		sb.WriteString(err.Field())
		sb.WriteString(": ")
		sb.WriteString(err.Tag())
		sb.WriteString("; ")
	}

	return Response{
		Status: StatusError,
		Error:  sb.String(),
	}
}

// RequestOK wraps a success message and optional payload into the envelope.
func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}
