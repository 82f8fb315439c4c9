package handlers

import (
	"encoding/json"
	"net/http"
)

// apiError is the wire shape of every non-2xx body the engine returns.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) error {
	return writeJSON(w, statusCode, apiError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
