package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// ServeHTTP accepts one webhook delivery. Once the pipeline has run the caller
// always gets 200 with the same body; failures only show up in the processing log.
func (p *InboundProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	slog.Info("Received data via webhook.")
	raw, err := DecodePayload(r.Body)
	if err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	p.Process(r.Context(), ClassifyPayload(raw))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(models.ProcessedResponse); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
