// Package handlers provides HTTP handlers for the recommender API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// respond writes the payload as JSON. The API reports failures in-band inside
// the payload and keeps the HTTP status at 200, matching what the frontend
// expects; only encoding problems surface as a 500.
func respond(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// errorPayload is the generic in-band failure shape.
type errorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, message string) {
	respond(w, errorPayload{Status: "error", Message: message})
}
