package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
)

// apiEnvelope is the uniform response shape for every endpoint. Clients
// branch on Success alone, never on the presence or absence of fields.
type apiEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
}

// respondData writes a success envelope.
func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, apiEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// respondError writes a failure envelope. No internal detail beyond the
// provided message is exposed to callers.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string, details ...string) {
	writeEnvelope(ctx, w, apiEnvelope{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, envelope apiEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(envelope.StatusCode)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Error("encode response body", "status", envelope.StatusCode, "error", err)
		return
	}

	switch {
	case envelope.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", "status", envelope.StatusCode, "message", envelope.Message)
	case envelope.StatusCode >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", envelope.StatusCode, "message", envelope.Message)
	}
}
