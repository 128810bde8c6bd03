package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-booking/internal/apperror"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError renders err with the status of its category. Errors outside the
// taxonomy are reported as a generic failure with the underlying message.
func WriteError(w http.ResponseWriter, err error) error {
	return WriteErrorWithData(w, err, nil)
}

// WriteErrorWithData is WriteError with a data payload, used when a partial
// result (such as a persisted order id) must reach the caller.
func WriteErrorWithData(w http.ResponseWriter, err error, data interface{}) error {
	resp := ErrorResponse("request failed", err.Error())
	if appErr, ok := apperror.As(err); ok {
		resp.Message = string(appErr.Category)
		resp.Error = appErr.PublicError
	}
	resp.Data = data
	return WriteJSON(w, apperror.StatusOf(err), resp)
}
