package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "engram/pkg/errors"

	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// respondAppError maps an application error to its HTTP status. Errors
// without a status render as 500 with a generic message so internals
// never leak.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		message := appErr.Message
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			message = fallback
		}
		respondError(w, logger, appErr.HTTPStatus, message)
		return
	}
	respondError(w, logger, http.StatusInternalServerError, fallback)
}
