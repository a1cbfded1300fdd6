// Package api provides shared JSON response helpers for the HTTP handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Message writes a `{"message": ...}` response.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// Error writes an `{"error": ...}` response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Reply writes the `{"reply": ...}` success shape used by the prompt endpoints.
func Reply(w http.ResponseWriter, reply string) {
	JSON(w, http.StatusOK, map[string]string{"reply": reply})
}
