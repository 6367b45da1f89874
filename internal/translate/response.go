package translate

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/openai"
	"geminibridge/internal/sigcache"
)

// ToChatCompletion converts a non-streaming Gemini response into an OpenAI
// chat completion. Minted tool call IDs are recorded in the signature cache
// so the follow-up turn can restore reasoning context.
func ToChatCompletion(model string, resp *gemini.GenerateContentResponse, cache *sigcache.Cache) *openai.ChatCompletionResponse {
	out := &openai.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String(),
		Object:  openai.ChatCompletionObject,
		Created: time.Now().Unix(),
		Model:   model,
	}

	var content strings.Builder
	var thinking strings.Builder
	signature := ""
	var toolCalls []openai.ToolCall

	if len(resp.Response.Candidates) > 0 {
		for _, part := range resp.Response.Candidates[0].Content.Parts {
			switch {
			case part.FunctionCall != nil:
				if part.ThoughtSignature != "" && signature == "" {
					signature = part.ThoughtSignature
				}
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					logger.Get().Warn().Err(err).Str("function", part.FunctionCall.Name).Msg("Could not marshal function call args")
					args = []byte("{}")
				}
				callID := "call_" + uuid.New().String()
				if signature != "" && cache != nil {
					cache.Store(callID, signature, thinking.String())
				}
				toolCalls = append(toolCalls, openai.ToolCall{
					Index: len(toolCalls),
					ID:    callID,
					Type:  "function",
					Function: openai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})

			case part.Thought && part.Text != "":
				if part.ThoughtSignature != "" {
					signature = part.ThoughtSignature
				}
				thinking.WriteString(part.Text)

			case part.Text != "":
				if part.ThoughtSignature != "" {
					signature = part.ThoughtSignature
				}
				// Inline thinking blocks move to the reasoning channel.
				visible := part.Text
				for _, m := range thinkingBlockRe.FindAllStringSubmatch(visible, -1) {
					thinking.WriteString(m[1])
				}
				content.WriteString(thinkingBlockRe.ReplaceAllString(visible, ""))
			}
		}
	}

	finishReason := "stop"
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	}

	out.Choices = []openai.Choice{{
		Index: 0,
		Message: openai.Message{
			Role:      "assistant",
			Content:   content.String(),
			ToolCalls: toolCalls,
			Thinking:  thinking.String(),
			Signature: signature,
		},
		FinishReason: finishReason,
	}}

	if u := resp.Response.UsageMetadata; u != nil {
		out.Usage = &openai.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.PromptTokenCount + u.CandidatesTokenCount,
		}
	}
	return out
}
