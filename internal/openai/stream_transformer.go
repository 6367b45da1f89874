package openai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/sigcache"
)

// StreamTransformer converts a stream of Gemini envelopes into OpenAI
// chat.completion.chunk payloads. One transformer serves one response.
type StreamTransformer struct {
	model  string
	cache  *sigcache.Cache
	notice string
}

// NewStreamTransformer creates a transformer that stamps chunks with the
// caller-requested model name.
func NewStreamTransformer(model string, cache *sigcache.Cache) *StreamTransformer {
	return &StreamTransformer{model: model, cache: cache}
}

// SetNotice queues a text notice to be emitted as the first content delta,
// used to surface a model fallback to the caller.
func (t *StreamTransformer) SetNotice(notice string) {
	t.notice = notice
}

// Transform consumes upstream envelopes and yields OpenAI chunks. The output
// channel closes after the terminal chunk, or without one when ctx is
// cancelled mid-stream.
func (t *StreamTransformer) Transform(ctx context.Context, in <-chan gemini.StreamEnvelope) <-chan Chunk {
	out := make(chan Chunk, 32)

	go func() {
		defer close(out)

		chatID := "chatcmpl-" + uuid.New().String()
		created := time.Now().Unix()

		firstChunk := true
		toolCalled := false
		var usage *gemini.UsageMetadata
		currentSignature := ""
		accumulatedThought := ""
		splitter := &thinkingSplitter{}

		send := func(chunk Chunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		emitDelta := func(delta Delta) bool {
			if firstChunk {
				delta.Role = "assistant"
				firstChunk = false
			}
			return send(Chunk{
				ID:      chatID,
				Object:  ChatCompletionChunkObject,
				Created: created,
				Model:   t.model,
				Choices: []ChunkChoice{{Index: 0, Delta: delta}},
			})
		}

		emitSplit := func(events []splitEvent) bool {
			for _, ev := range events {
				if ev.thinking {
					accumulatedThought += ev.text
					if !emitDelta(Delta{Thinking: ev.text, Signature: currentSignature}) {
						return false
					}
					continue
				}
				text := ev.text
				if !emitDelta(Delta{Content: &text}) {
					return false
				}
			}
			return true
		}

		if t.notice != "" {
			notice := t.notice
			if !emitDelta(Delta{Content: &notice}) {
				return
			}
		}

		for env := range in {
			if env.Response.UsageMetadata != nil {
				usage = env.Response.UsageMetadata
			}
			if len(env.Response.Candidates) == 0 {
				continue
			}

			for _, part := range env.Response.Candidates[0].Content.Parts {
				// Capture the signature first so a signature-only part
				// still updates it. On a call part it wins only when none
				// was captured from thought parts.
				if part.ThoughtSignature != "" && (part.FunctionCall == nil || currentSignature == "") {
					currentSignature = part.ThoughtSignature
				}

				switch {
				case part.FunctionCall != nil:
					callID := "call_" + uuid.New().String()
					toolCalled = true
					if currentSignature != "" {
						t.cache.Store(callID, currentSignature, accumulatedThought)
					}

					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						logger.Get().Warn().Err(err).Str("function", part.FunctionCall.Name).Msg("Could not marshal function call args")
						args = []byte("{}")
					}

					delta := Delta{
						ToolCalls: []ToolCall{{
							Index: 0,
							ID:    callID,
							Type:  "function",
							Function: FunctionCall{
								Name:      part.FunctionCall.Name,
								Arguments: string(args),
							},
						}},
					}
					if firstChunk {
						delta.NullContent = true
					}
					if !emitDelta(delta) {
						return
					}

				case part.Thought && part.Text != "":
					accumulatedThought += part.Text
					if !emitDelta(Delta{Thinking: part.Text, Signature: currentSignature}) {
						return
					}

				case part.Text != "":
					if !emitSplit(splitter.feed(part.Text)) {
						return
					}
				}
			}
		}

		if ctx.Err() != nil {
			return
		}

		// Release any buffered partial tag before finishing.
		if !emitSplit(splitter.flush()) {
			return
		}

		finish := "stop"
		if toolCalled {
			finish = "tool_calls"
		}
		terminal := Chunk{
			ID:      chatID,
			Object:  ChatCompletionChunkObject,
			Created: created,
			Model:   t.model,
			Choices: []ChunkChoice{{Index: 0, Delta: Delta{}, FinishReason: &finish}},
		}
		if usage != nil {
			terminal.Usage = &Usage{
				PromptTokens:     usage.PromptTokenCount,
				CompletionTokens: usage.CandidatesTokenCount,
				TotalTokens:      usage.PromptTokenCount + usage.CandidatesTokenCount,
			}
		}
		send(terminal)
	}()

	return out
}
