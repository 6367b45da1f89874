package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/openai"
)

// writeError emits an OpenAI-dialect error body.
func writeError(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := openai.ErrorResponse{Error: openai.ErrorDetail{
		Message: message,
		Type:    errType,
		Code:    status,
	}}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Get().Error().Err(err).Msg("Error writing error response")
	}
}

// writeUpstreamError maps an upstream failure onto the caller, preserving
// the upstream status when one exists.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var ue *gemini.UpstreamError
	if errors.As(err, &ue) {
		errType := "api_error"
		if ue.IsRateLimit() {
			errType = "rate_limit_error"
		}
		writeError(w, ue.StatusCode, ue.Body, errType)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error(), "api_error")
}
