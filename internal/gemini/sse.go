package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"geminibridge/internal/logger"
)

// ParseSSEStream consumes a text/event-stream body and yields one
// StreamEnvelope per upstream event. Lines starting with "data: " accumulate
// into the current event; a blank line terminates it. Events that fail to
// parse are logged and skipped. The channel closes on stream end or when ctx
// is done; the body is always closed.
func ParseSSEStream(ctx context.Context, body io.ReadCloser) <-chan StreamEnvelope {
	out := make(chan StreamEnvelope, 32)

	go func() {
		defer close(out)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		// Increase the scanner buffer for large SSE events
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		var data strings.Builder

		emit := func() bool {
			if data.Len() == 0 {
				return true
			}
			payload := strings.TrimSpace(data.String())
			data.Reset()
			if payload == "" || payload == "[DONE]" || payload == "\"[DONE]\"" {
				return true
			}

			var env StreamEnvelope
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				logger.Get().Warn().Err(err).Int("len", len(payload)).Msg("Skipping unparseable SSE event")
				return true
			}

			select {
			case out <- env:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := scanner.Text()

			if strings.HasPrefix(line, "data: ") {
				data.WriteString(strings.TrimPrefix(line, "data: "))
				continue
			}
			if line == "" {
				if !emit() {
					return
				}
			}
			// Comment lines (": ping") and other fields are ignored.
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			logger.Get().Warn().Err(err).Msg("Upstream SSE stream ended with error")
		}

		// Stream ended mid-event: attempt one final parse.
		emit()
	}()

	return out
}
