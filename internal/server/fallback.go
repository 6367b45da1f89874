package server

import (
	"errors"
	"fmt"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
)

// fallbackFor decides whether a failed upstream call should be retried on a
// fallback model. It returns the fallback model and a human-readable notice
// for the caller.
func (s *Server) fallbackFor(err error, model string) (string, string, bool) {
	if s.cfg.DisableAutoModelSwitch {
		return "", "", false
	}

	var ue *gemini.UpstreamError
	if !errors.As(err, &ue) || !ue.IsRateLimit() {
		return "", "", false
	}

	fb, ok := gemini.FallbackFor(model)
	if !ok {
		return "", "", false
	}

	logger.Get().Warn().
		Int("status", ue.StatusCode).
		Str("model", model).
		Str("fallback_model", fb).
		Msg("Upstream rate limited, switching model")

	notice := fmt.Sprintf("[%s rate limited, retrying with %s]\n\n", model, fb)
	return fb, notice, true
}
