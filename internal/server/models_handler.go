package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"geminibridge/internal/gemini"
)

// ModelInfo represents a single model in the list.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelsListResponse is the top-level response for the models endpoint.
type ModelsListResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "invalid_request_error")
		return
	}

	created := time.Now().Unix()
	var models []ModelInfo
	for _, id := range gemini.KnownModels() {
		models = append(models, ModelInfo{
			ID:      id,
			Object:  "model",
			Created: created,
			OwnedBy: "google",
		})
	}

	// Handle request for a single model, e.g. /v1/models/gemini-2.5-pro
	if rest := strings.Trim(strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/openai"), "/v1/models"), "/"); rest != "" {
		for _, model := range models {
			if model.ID == rest {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(model)
				return
			}
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ModelsListResponse{Object: "list", Data: models})
}
