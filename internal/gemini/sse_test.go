package gemini

import (
	"context"
	"io"
	"strings"
	"testing"
)

func drain(ch <-chan StreamEnvelope) []StreamEnvelope {
	var out []StreamEnvelope
	for env := range ch {
		out = append(out, env)
	}
	return out
}

func firstText(env StreamEnvelope) string {
	if len(env.Response.Candidates) == 0 {
		return ""
	}
	parts := env.Response.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

func TestParseSSEStream(t *testing.T) {
	raw := strings.Join([]string{
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}}`,
		``,
		`: ping`,
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"world"}]}}]}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	envs := drain(ParseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw))))
	if len(envs) != 2 {
		t.Fatalf("got %d envelopes, want 2", len(envs))
	}
	if firstText(envs[0]) != "hello" || firstText(envs[1]) != "world" {
		t.Errorf("texts = %q, %q", firstText(envs[0]), firstText(envs[1]))
	}
}

func TestParseSSEStreamMultiLineEvent(t *testing.T) {
	// One JSON event split across two data lines.
	raw := strings.Join([]string{
		`data: {"response":{"candidates":[{"content":`,
		`data: {"parts":[{"text":"joined"}]}}]}}`,
		``,
	}, "\n")

	envs := drain(ParseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw))))
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	if firstText(envs[0]) != "joined" {
		t.Errorf("text = %q, want joined", firstText(envs[0]))
	}
}

func TestParseSSEStreamSkipsUnparseable(t *testing.T) {
	raw := strings.Join([]string{
		`data: this is not json`,
		``,
		`data: {"response":{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}}`,
		``,
	}, "\n")

	envs := drain(ParseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw))))
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	if firstText(envs[0]) != "ok" {
		t.Errorf("text = %q, want ok", firstText(envs[0]))
	}
}

func TestParseSSEStreamFinalEventWithoutBlankLine(t *testing.T) {
	raw := `data: {"response":{"candidates":[{"content":{"parts":[{"text":"tail"}]}}]}}`

	envs := drain(ParseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw))))
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	if firstText(envs[0]) != "tail" {
		t.Errorf("text = %q, want tail", firstText(envs[0]))
	}
}

func TestParseSSEStreamBarePayload(t *testing.T) {
	// Some upstream events arrive without the CloudCode wrapper.
	raw := strings.Join([]string{
		`data: {"candidates":[{"content":{"parts":[{"text":"bare"}]}}]}`,
		``,
	}, "\n")

	envs := drain(ParseSSEStream(context.Background(), io.NopCloser(strings.NewReader(raw))))
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	if firstText(envs[0]) != "bare" {
		t.Errorf("text = %q, want bare", firstText(envs[0]))
	}
}
