// Package api provides HTTP response utilities for PostPilot.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/postpilot/PostPilot/internal/models"
)

// Pre-marshaled fallback response to avoid runtime JSON encoding failures
var fallbackErrorResponse []byte

// init validates that our fallback response can be marshaled
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal the response to JSON first to catch encoding errors before writing headers
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeErrorResponse maps a structured failure onto an HTTP status and the
// user-visible message policy: user-correctable kinds verbatim, upstream
// kinds as a generic retry notice with the specific kind logged server-side.
func writeErrorResponse(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	writeJSONResponse(w, statusForKind(kind), models.Error(models.UserMessage(err)))
}

// statusForKind maps error taxonomy kinds to HTTP status codes.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrorKindInvalidInput:
		return http.StatusBadRequest
	case models.ErrorKindNoPriorTopic:
		return http.StatusConflict
	case models.ErrorKindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case models.ErrorKindUpstreamRejected, models.ErrorKindUpstreamEmptyResponse:
		return http.StatusBadGateway
	case models.ErrorKindStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
