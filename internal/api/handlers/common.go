// Package handlers - HTTP handlers ops API.
package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// ErrorResponse стандартный формат ответа об ошибке
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoniter.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
