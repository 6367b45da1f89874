package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/openai"
	"geminibridge/internal/translate"
)

// chatCompletionsHandler handles OpenAI-compatible chat completion requests,
// delegating to the streaming or non-streaming variant.
func (s *Server) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "invalid_request_error")
		return
	}

	startTime := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error reading request body")
		writeError(w, http.StatusBadRequest, "Error reading request body", "invalid_request_error")
		return
	}
	defer r.Body.Close()

	var req openai.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Get().Error().Err(err).Msg("Error parsing request body")
		writeError(w, http.StatusBadRequest, "Error parsing request body", "invalid_request_error")
		return
	}

	logger.Get().Info().
		Str("requested_model", req.Model).
		Bool("stream", req.Stream).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("Parsed OpenAI request")

	projectID, err := s.geminiClient.DiscoverProject(r.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Project discovery failed")
		writeUpstreamError(w, err)
		return
	}

	gemReq := translate.ToGeminiRequest(projectID, &req, s.cache, translate.Options{
		DisableGoogleSearch: s.cfg.DisableGoogleSearch,
	})
	if gemReq.Model != req.Model {
		logger.Get().Info().
			Str("requested_model", req.Model).
			Str("resolved_model", gemReq.Model).
			Msg("Resolved model for CloudCode")
	}

	if req.Stream {
		s.chatCompletionStream(w, r, &req, gemReq, startTime)
		return
	}
	s.chatCompletion(w, r, &req, gemReq, startTime)
}

// chatCompletionStream proxies the streaming variant, translating upstream
// SSE into OpenAI chunks.
func (s *Server) chatCompletionStream(w http.ResponseWriter, r *http.Request, req *openai.ChatCompletionRequest, gemReq *gemini.GenerateContentRequest, startTime time.Time) {
	notice := ""
	upstream, err := s.geminiClient.StreamGenerateContent(r.Context(), gemReq)
	if err != nil {
		fb, fbNotice, ok := s.fallbackFor(err, gemReq.Model)
		if !ok {
			logger.Get().Error().Err(err).Msg("StreamGenerateContent call failed")
			writeUpstreamError(w, err)
			return
		}
		gemReq.Model = fb
		notice = fbNotice
		upstream, err = s.geminiClient.StreamGenerateContent(r.Context(), gemReq)
		if err != nil {
			logger.Get().Error().Err(err).Msg("StreamGenerateContent failed on fallback model")
			writeUpstreamError(w, err)
			return
		}
	}

	w.Header().Del("Content-Length")
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var flusher http.Flusher
	if f, ok := w.(http.Flusher); ok {
		flusher = f
		flusher.Flush()
	} else {
		logger.Get().Info().Msg("SSE flusher not available; relying on implicit streaming")
	}

	// Ping until the first chunk arrives so idle proxies keep the
	// connection open.
	pingerCtx, cancelPinger := context.WithCancel(r.Context())
	defer cancelPinger()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					logger.Get().Warn().Err(err).Msg("Failed to write SSE ping")
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			case <-pingerCtx.Done():
				return
			}
		}
	}()

	envelopes := gemini.ParseSSEStream(r.Context(), upstream)

	transformer := openai.NewStreamTransformer(req.Model, s.cache)
	if notice != "" {
		transformer.SetNotice(notice)
	}
	chunks := transformer.Transform(r.Context(), envelopes)

	firstWrite := true
	for chunk := range chunks {
		if firstWrite {
			cancelPinger()
			logger.Get().Info().
				Dur("time_to_first_client_write", time.Since(startTime)).
				Msg("First OpenAI SSE chunk written to client")
			firstWrite = false
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			logger.Get().Error().Err(err).Msg("Error marshaling SSE chunk")
			continue
		}
		if _, err := io.WriteString(w, "data: "+string(data)+"\n\n"); err != nil {
			logger.Get().Error().Err(err).Msg("Error writing SSE to client")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if r.Context().Err() != nil {
		logger.Get().Info().Msg("Client disconnected mid-stream")
		return
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		logger.Get().Error().Err(err).Msg("Error writing SSE DONE")
		return
	}
	if flusher != nil {
		flusher.Flush()
	}

	logger.Get().Info().
		Str("model", gemReq.Model).
		Dur("total_duration", time.Since(startTime)).
		Msg("OpenAI streaming response completed")
}

// chatCompletion handles the non-streaming variant via GenerateContent.
func (s *Server) chatCompletion(w http.ResponseWriter, r *http.Request, req *openai.ChatCompletionRequest, gemReq *gemini.GenerateContentRequest, startTime time.Time) {
	apiStart := time.Now()
	notice := ""

	resp, err := s.geminiClient.GenerateContent(r.Context(), gemReq)
	if err != nil {
		fb, fbNotice, ok := s.fallbackFor(err, gemReq.Model)
		if !ok {
			logger.Get().Error().Err(err).Dur("api_call_duration", time.Since(apiStart)).Msg("GenerateContent failed")
			writeUpstreamError(w, err)
			return
		}
		gemReq.Model = fb
		notice = fbNotice
		resp, err = s.geminiClient.GenerateContent(r.Context(), gemReq)
		if err != nil {
			logger.Get().Error().Err(err).Msg("GenerateContent failed on fallback model")
			writeUpstreamError(w, err)
			return
		}
	}

	openAIResp := translate.ToChatCompletion(req.Model, resp, s.cache)
	openAIResp.Notice = notice

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(openAIResp); err != nil {
		logger.Get().Error().Err(err).Msg("Error writing non-streaming response")
		return
	}

	logger.Get().Info().
		Str("model", gemReq.Model).
		Dur("api_call_duration", time.Since(apiStart)).
		Dur("total_duration", time.Since(startTime)).
		Msg("OpenAI non-streaming response completed")
}
