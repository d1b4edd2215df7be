package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// GetCallerID retrieves the caller identity from the request context.
// Returns the caller id and a boolean indicating success.
func GetCallerID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	callerID, ok := CallerID(r.Context())
	if !ok || callerID == "" {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: Missing or invalid caller ID")
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(callerID)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid caller ID: %s", callerID))
		return uuid.Nil, false
	}
	return parsed, true
}
