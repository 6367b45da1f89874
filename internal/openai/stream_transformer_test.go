package openai

import (
	"context"
	"strings"
	"testing"

	"geminibridge/internal/gemini"
	"geminibridge/internal/sigcache"
)

func newTestCache(t *testing.T) *sigcache.Cache {
	t.Helper()
	cache := sigcache.New(sigcache.NewMemoryStore())
	t.Cleanup(cache.Destroy)
	return cache
}

func envelope(parts ...gemini.ContentPart) gemini.StreamEnvelope {
	return gemini.StreamEnvelope{Response: gemini.ResponsePayload{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Role: "model", Parts: parts}}},
	}}
}

func collectChunks(t *testing.T, tr *StreamTransformer, envelopes ...gemini.StreamEnvelope) []Chunk {
	t.Helper()
	in := make(chan gemini.StreamEnvelope, len(envelopes))
	for _, env := range envelopes {
		in <- env
	}
	close(in)

	var chunks []Chunk
	for chunk := range tr.Transform(context.Background(), in) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestTransformTextStream(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{Text: "Hello"}),
		envelope(gemini.ContentPart{Text: " world"}),
	)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].Choices[0].Delta.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", chunks[0].Choices[0].Delta.Role)
	}
	if chunks[1].Choices[0].Delta.Role != "" {
		t.Errorf("second chunk should not repeat the role")
	}

	var text strings.Builder
	for _, c := range chunks {
		if c.Choices[0].Delta.Content != nil {
			text.WriteString(*c.Choices[0].Delta.Content)
		}
	}
	if text.String() != "Hello world" {
		t.Errorf("content = %q, want %q", text.String(), "Hello world")
	}

	last := chunks[len(chunks)-1]
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "stop" {
		t.Errorf("terminal finish_reason = %v, want stop", last.Choices[0].FinishReason)
	}
}

func TestTransformThoughtParts(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{Text: "step one", Thought: true, ThoughtSignature: "sig-abc"}),
		envelope(gemini.ContentPart{Text: "answer"}),
	)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	first := chunks[0].Choices[0].Delta
	if first.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", first.Role)
	}
	if first.Thinking != "step one" || first.Signature != "sig-abc" {
		t.Errorf("thought delta = (%q, %q), want (step one, sig-abc)", first.Thinking, first.Signature)
	}
	if chunks[1].Choices[0].Delta.Content == nil || *chunks[1].Choices[0].Delta.Content != "answer" {
		t.Errorf("content delta missing")
	}
}

func TestTransformInlineThinkingTags(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{Text: "<thinking>hid"}),
		envelope(gemini.ContentPart{Text: "den</thinking>shown"}),
	)

	var content, thinking strings.Builder
	for _, c := range chunks {
		d := c.Choices[0].Delta
		if d.Content != nil {
			content.WriteString(*d.Content)
		}
		thinking.WriteString(d.Thinking)
	}
	if content.String() != "shown" {
		t.Errorf("content = %q, want %q", content.String(), "shown")
	}
	if thinking.String() != "hidden" {
		t.Errorf("thinking = %q, want %q", thinking.String(), "hidden")
	}
}

func TestTransformToolCall(t *testing.T) {
	cache := newTestCache(t)
	tr := NewStreamTransformer("gemini-2.5-pro", cache)
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{Text: "considering", Thought: true, ThoughtSignature: "sig-xyz"}),
		envelope(gemini.ContentPart{FunctionCall: &gemini.FunctionCall{
			Name: "get_weather",
			Args: map[string]interface{}{"city": "Tokyo"},
		}}),
	)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	toolDelta := chunks[1].Choices[0].Delta
	if len(toolDelta.ToolCalls) != 1 {
		t.Fatalf("expected one tool call delta")
	}
	tc := toolDelta.ToolCalls[0]
	if !strings.HasPrefix(tc.ID, "call_") {
		t.Errorf("tool call ID = %q, want call_ prefix", tc.ID)
	}
	if tc.Type != "function" || tc.Function.Name != "get_weather" {
		t.Errorf("tool call = %+v", tc)
	}
	if !strings.Contains(tc.Function.Arguments, `"city":"Tokyo"`) {
		t.Errorf("arguments = %q", tc.Function.Arguments)
	}

	// The signature must be retrievable under the minted ID.
	sig, thought, ok := cache.Get(tc.ID)
	if !ok || sig != "sig-xyz" {
		t.Errorf("cache.Get(%q) = (%q, ok=%v), want sig-xyz", tc.ID, sig, ok)
	}
	if thought != "considering" {
		t.Errorf("cached thought = %q, want considering", thought)
	}

	last := chunks[2]
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("terminal finish_reason = %v, want tool_calls", last.Choices[0].FinishReason)
	}
}

func TestTransformSignatureOnlyThoughtPart(t *testing.T) {
	cache := newTestCache(t)
	tr := NewStreamTransformer("gemini-2.5-pro", cache)
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{Thought: true, ThoughtSignature: "sig-bare"}),
		envelope(gemini.ContentPart{FunctionCall: &gemini.FunctionCall{
			Name: "lookup",
			Args: map[string]interface{}{},
		}}),
	)

	var tc *ToolCall
	for _, c := range chunks {
		if len(c.Choices[0].Delta.ToolCalls) > 0 {
			tc = &c.Choices[0].Delta.ToolCalls[0]
		}
	}
	if tc == nil {
		t.Fatal("no tool call delta emitted")
	}
	sig, _, ok := cache.Get(tc.ID)
	if !ok || sig != "sig-bare" {
		t.Errorf("cache.Get(%q) = (%q, ok=%v), want sig-bare", tc.ID, sig, ok)
	}
}

func TestTransformToolCallFirstChunkHasNullContent(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	chunks := collectChunks(t, tr,
		envelope(gemini.ContentPart{FunctionCall: &gemini.FunctionCall{Name: "f", Args: map[string]interface{}{}}}),
	)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	d := chunks[0].Choices[0].Delta
	if d.Role != "assistant" {
		t.Errorf("role = %q, want assistant", d.Role)
	}
	if !d.NullContent {
		t.Errorf("expected explicit null content on tool-call first chunk")
	}

	raw, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"content":null`) {
		t.Errorf("marshaled delta = %s, want content:null", raw)
	}
}

func TestTransformUsage(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	usageEnv := gemini.StreamEnvelope{Response: gemini.ResponsePayload{
		Candidates:    []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.ContentPart{{Text: "hi"}}}}},
		UsageMetadata: &gemini.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
	}}
	chunks := collectChunks(t, tr, usageEnv)

	last := chunks[len(chunks)-1]
	if last.Usage == nil {
		t.Fatal("terminal chunk has no usage")
	}
	if last.Usage.PromptTokens != 10 || last.Usage.CompletionTokens != 5 || last.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", last.Usage)
	}
}

func TestTransformNotice(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	tr.SetNotice("[switched]\n\n")
	chunks := collectChunks(t, tr, envelope(gemini.ContentPart{Text: "ok"}))

	first := chunks[0].Choices[0].Delta
	if first.Role != "assistant" || first.Content == nil || *first.Content != "[switched]\n\n" {
		t.Errorf("first delta = %+v, want notice with role", first)
	}
}

func TestTransformCancelledContextEmitsNoTerminal(t *testing.T) {
	tr := NewStreamTransformer("gemini-2.5-pro", newTestCache(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan gemini.StreamEnvelope)
	close(in)

	for chunk := range tr.Transform(ctx, in) {
		if chunk.Choices[0].FinishReason != nil {
			t.Errorf("terminal chunk emitted after cancellation")
		}
	}
}
