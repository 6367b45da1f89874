package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"geminibridge/internal/gemini"
	"geminibridge/internal/logger"
	"geminibridge/internal/openai"
	"geminibridge/internal/sigcache"
)

// Options tune the translation independent of the request itself.
type Options struct {
	DisableGoogleSearch bool
}

var (
	thinkingBlockRe = regexp.MustCompile(`<thinking[^>]*>([\s\S]*?)</thinking>`)
	dataURLRe       = regexp.MustCompile(`^data:(image/[^;]+);base64,(.+)$`)
)

// ToGeminiRequest converts an OpenAI chat completion request into a CloudCode
// generateContent request. The translation is total: unrecognized or
// malformed message content degrades to text rather than failing.
func ToGeminiRequest(project string, req *openai.ChatCompletionRequest, cache *sigcache.Cache, opts Options) *gemini.GenerateContentRequest {
	model := gemini.ResolveModel(req.Model)

	var systemText strings.Builder
	var contents []gemini.Content

	for i := 0; i < len(req.Messages); i++ {
		msg := req.Messages[i]

		switch msg.Role {
		case "system", "developer":
			systemText.WriteString(contentToString(msg.Content))

		case "tool":
			// Consecutive tool results become one user turn with multiple
			// functionResponse parts.
			var parts []gemini.ContentPart
			for ; i < len(req.Messages) && req.Messages[i].Role == "tool"; i++ {
				tm := req.Messages[i]
				parts = append(parts, gemini.ContentPart{
					FunctionResponse: &gemini.FunctionResponse{
						Name:     toolFunctionName(req.Messages, tm),
						Response: toolResponsePayload(tm.Content),
					},
				})
			}
			i--
			contents = append(contents, gemini.Content{Role: "user", Parts: parts})

		case "assistant":
			contents = append(contents, assistantContent(msg, cache))

		default:
			contents = append(contents, gemini.Content{Role: "user", Parts: userParts(msg.Content)})
		}
	}

	internal := gemini.InternalRequest{
		Contents:         contents,
		GenerationConfig: generationConfig(model, req),
	}
	if systemText.Len() > 0 {
		internal.SystemInstruction = &gemini.SystemInstruction{
			Parts: []gemini.ContentPart{{Text: systemText.String()}},
		}
	}
	internal.Tools = mapTools(req.Tools, opts)
	internal.ToolConfig = mapToolChoice(req.ToolChoice)

	return &gemini.GenerateContentRequest{
		Model:   model,
		Project: project,
		Request: internal,
	}
}

// assistantContent rebuilds a model turn, restoring thought context so the
// upstream can validate reasoning continuity across tool calls.
func assistantContent(msg openai.Message, cache *sigcache.Cache) gemini.Content {
	thoughtText, signature := msg.ReasoningFields()

	// A cached signature for any of the referenced tool calls is fresher
	// than whatever the client echoed back. First hit wins.
	if cache != nil {
		for _, tc := range msg.ToolCalls {
			sig, cachedThought, ok := cache.Get(tc.ID)
			if !ok {
				continue
			}
			signature = sig
			if cachedThought != "" {
				thoughtText = cachedThought
			}
			break
		}
	}

	visible := contentToString(msg.Content)
	if thoughtText == "" {
		if m := thinkingBlockRe.FindStringSubmatch(visible); m != nil {
			thoughtText = m[1]
		}
	}
	// Inline thinking blocks never go upstream as visible text.
	visible = thinkingBlockRe.ReplaceAllString(visible, "")

	var parts []gemini.ContentPart
	if thoughtText != "" {
		parts = append(parts, gemini.ContentPart{
			Text:             thoughtText,
			Thought:          true,
			ThoughtSignature: signature,
		})
	}
	if strings.TrimSpace(visible) != "" {
		parts = append(parts, gemini.ContentPart{Text: visible})
	}

	for _, tc := range msg.ToolCalls {
		parts = append(parts, gemini.ContentPart{
			FunctionCall: &gemini.FunctionCall{
				Name: tc.Function.Name,
				Args: parseArguments(tc.Function.Arguments),
			},
			ThoughtSignature: signature,
		})
	}

	if len(parts) == 0 {
		parts = append(parts, gemini.ContentPart{Text: ""})
	}
	return gemini.Content{Role: "model", Parts: parts}
}

// userParts maps user message content, which may be a plain string or a list
// of typed parts including base64 data-URL images.
func userParts(content interface{}) []gemini.ContentPart {
	switch c := content.(type) {
	case nil:
		return []gemini.ContentPart{{Text: ""}}
	case string:
		return []gemini.ContentPart{{Text: c}}

	case []interface{}:
		var parts []gemini.ContentPart
		for _, raw := range c {
			part, ok := raw.(map[string]interface{})
			if !ok {
				parts = append(parts, gemini.ContentPart{Text: stringify(raw)})
				continue
			}
			switch part["type"] {
			case "text":
				text, _ := part["text"].(string)
				if !strings.HasSuffix(text, "\n") {
					text += "\n"
				}
				parts = append(parts, gemini.ContentPart{Text: text})
			case "image_url":
				if img, ok := imagePart(part); ok {
					parts = append(parts, img)
				}
			default:
				parts = append(parts, gemini.ContentPart{Text: stringify(raw)})
			}
		}
		if len(parts) == 0 {
			parts = append(parts, gemini.ContentPart{Text: ""})
		}
		return parts

	default:
		return []gemini.ContentPart{{Text: stringify(content)}}
	}
}

// imagePart decodes an OpenAI image_url part. Only base64 data URLs can be
// forwarded; anything else is dropped.
func imagePart(part map[string]interface{}) (gemini.ContentPart, bool) {
	imageURL, _ := part["image_url"].(map[string]interface{})
	url, _ := imageURL["url"].(string)
	if m := dataURLRe.FindStringSubmatch(url); m != nil {
		return gemini.ContentPart{InlineData: &gemini.InlineData{MimeType: m[1], Data: m[2]}}, true
	}
	logger.Get().Debug().Msg("Dropping non-inline image_url part")
	return gemini.ContentPart{}, false
}

// toolFunctionName recovers the function name for a tool result by matching
// its tool_call_id against earlier assistant tool calls.
func toolFunctionName(messages []openai.Message, toolMsg openai.Message) string {
	if toolMsg.ToolCallID != "" {
		for _, m := range messages {
			if m.Role != "assistant" {
				continue
			}
			for _, tc := range m.ToolCalls {
				if tc.ID == toolMsg.ToolCallID {
					return tc.Function.Name
				}
			}
		}
	}
	if toolMsg.Name != "" {
		return toolMsg.Name
	}
	return "unknown"
}

// toolResponsePayload shapes tool output as a JSON object, wrapping plain
// text under a "result" key.
func toolResponsePayload(content interface{}) map[string]interface{} {
	text := contentToString(content)
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]interface{}{"result": text}
}

// parseArguments parses tool call arguments, repairing truncated or
// malformed JSON before giving up on an empty object.
func parseArguments(raw string) map[string]interface{} {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err == nil {
		if err := json.Unmarshal([]byte(repaired), &args); err == nil {
			logger.Get().Debug().Int("len", len(raw)).Msg("Repaired malformed tool call arguments")
			return args
		}
	}

	logger.Get().Warn().Int("len", len(raw)).Msg("Could not parse tool call arguments, sending empty args")
	return map[string]interface{}{}
}

// mapTools converts caller function tools. When no function tools are given,
// Google Search grounding is attached unless disabled.
func mapTools(tools []openai.Tool, opts Options) []gemini.Tool {
	var decls []gemini.FunctionDeclaration
	for _, t := range tools {
		if t.Type != "function" {
			continue
		}
		decls = append(decls, gemini.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  MapFunctionParameters(t.Function.Parameters),
		})
	}

	if len(decls) > 0 {
		return []gemini.Tool{{FunctionDeclarations: decls}}
	}
	if !opts.DisableGoogleSearch {
		return []gemini.Tool{{GoogleSearch: &struct{}{}}}
	}
	return nil
}

// mapToolChoice converts the tool_choice directive to a function calling
// config. Absent or unrecognized directives leave the default behavior.
func mapToolChoice(choice interface{}) *gemini.ToolConfig {
	switch c := choice.(type) {
	case string:
		switch c {
		case "none":
			return &gemini.ToolConfig{FunctionCallingConfig: &gemini.FunctionCallingConfig{Mode: "NONE"}}
		case "auto":
			return &gemini.ToolConfig{FunctionCallingConfig: &gemini.FunctionCallingConfig{Mode: "AUTO"}}
		case "required":
			return &gemini.ToolConfig{FunctionCallingConfig: &gemini.FunctionCallingConfig{Mode: "ANY"}}
		}
	case map[string]interface{}:
		if fn, ok := c["function"].(map[string]interface{}); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return &gemini.ToolConfig{FunctionCallingConfig: &gemini.FunctionCallingConfig{
					Mode:                 "ANY",
					AllowedFunctionNames: []string{name},
				}}
			}
		}
	}
	return nil
}

// generationConfig builds the generation settings, forcing a thinkingConfig
// on models that require one.
func generationConfig(model string, req *openai.ChatCompletionRequest) *gemini.GenerationConfig {
	cfg := &gemini.GenerationConfig{Temperature: gemini.DefaultTemperature}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = req.MaxTokens
	}

	effortBudget, effortKnown := gemini.ThinkingBudgetFor(req.Effort())
	if gemini.IsThinkingModel(model) {
		budget := gemini.DefaultThinkingBudget
		if effortKnown {
			budget = effortBudget
		}
		cfg.ThinkingConfig = &gemini.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  budget,
		}
	} else if effortKnown {
		// An explicit, recognized effort still bounds models that do not
		// require a thinkingConfig.
		cfg.ThinkingConfig = &gemini.ThinkingConfig{ThinkingBudget: effortBudget}
	}
	return cfg
}

// contentToString flattens message content to plain text. Typed part lists
// concatenate their text parts.
func contentToString(content interface{}) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []interface{}:
		// Only text parts contribute; images and other typed parts have no
		// textual form and are ignored.
		var b strings.Builder
		for _, raw := range c {
			if part, ok := raw.(map[string]interface{}); ok {
				if text, ok := part["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	default:
		return stringify(content)
	}
}

func stringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
