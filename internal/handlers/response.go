package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/services"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	writeJSON(w, logger, statusCode, models.StatusResponse{Status: models.ResultError, Message: message})
}

// writeServiceError maps coordinator errors onto HTTP status codes. Store
// failures are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrInvalidLocation):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotMatched):
		writeError(w, logger, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrContention):
		writeError(w, logger, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody parses the JSON body into v and writes the error response itself
// when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v any) bool {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, logger, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	writeError(w, logger, http.StatusBadRequest, "Invalid JSON")
	return false
}

// validIDs rejects ids that are not safe to use as store keys and subject
// tokens. fields names the JSON field of each id for the error message.
func validIDs(w http.ResponseWriter, logger *zap.Logger, fields []string, ids ...string) bool {
	for i, id := range ids {
		if err := models.ValidateUserID(id); err != nil {
			writeError(w, logger, http.StatusBadRequest, "Invalid "+fields[i]+": "+err.Error())
			return false
		}
	}
	return true
}
