package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIResponse is the envelope every JSON endpoint returns. Recoverable
// failures come back as success=false with a message, not bare 500s.
type APIResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RequireMethod validates the HTTP method, writing a 405 envelope when
// it does not match.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code.
func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteData writes a success envelope around data.
func WriteData(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// WriteStarted acknowledges an async operation.
func WriteStarted(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusAccepted, APIResponse{Success: true, Data: map[string]string{"status": "started", "message": message}})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, APIResponse{Success: false, Error: message})
}

// DecodeBody decodes a JSON request body into dst, writing a 400
// envelope on malformed input.
func DecodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
