package openai

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReasoningFieldsAliasPriority(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		wantText string
		wantSig  string
	}{
		{
			name:     "thinking pair wins",
			msg:      Message{Thinking: "a", Signature: "s1", CotSummary: "b", CotID: "s2", ReasoningText: "c", ReasoningOpaque: "s3"},
			wantText: "a",
			wantSig:  "s1",
		},
		{
			name:     "cot pair when thinking absent",
			msg:      Message{CotSummary: "b", CotID: "s2", ReasoningText: "c", ReasoningOpaque: "s3"},
			wantText: "b",
			wantSig:  "s2",
		},
		{
			name:     "reasoning pair last",
			msg:      Message{ReasoningText: "c", ReasoningOpaque: "s3"},
			wantText: "c",
			wantSig:  "s3",
		},
		{
			name:     "signature alone still selects the pair",
			msg:      Message{Signature: "s1", CotSummary: "b"},
			wantText: "",
			wantSig:  "s1",
		},
		{
			name: "nothing set",
			msg:  Message{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, sig := tt.msg.ReasoningFields()
			if text != tt.wantText || sig != tt.wantSig {
				t.Errorf("ReasoningFields() = (%q, %q), want (%q, %q)", text, sig, tt.wantText, tt.wantSig)
			}
		})
	}
}

func TestDeltaMarshalContent(t *testing.T) {
	content := "hi"

	tests := []struct {
		name    string
		delta   Delta
		want    string
		wantNot string
	}{
		{name: "content present", delta: Delta{Content: &content}, want: `"content":"hi"`},
		{name: "null content forced", delta: Delta{NullContent: true}, want: `"content":null`},
		{name: "content omitted", delta: Delta{Thinking: "t"}, wantNot: `"content"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.delta)
			if err != nil {
				t.Fatal(err)
			}
			if tt.want != "" && !strings.Contains(string(raw), tt.want) {
				t.Errorf("marshaled = %s, want substring %s", raw, tt.want)
			}
			if tt.wantNot != "" && strings.Contains(string(raw), tt.wantNot) {
				t.Errorf("marshaled = %s, must not contain %s", raw, tt.wantNot)
			}
		})
	}
}

func TestEffortPrefersTopLevelField(t *testing.T) {
	req := ChatCompletionRequest{ReasoningEffort: "high", Reasoning: &Reasoning{Effort: "low"}}
	if req.Effort() != "high" {
		t.Errorf("Effort() = %q, want high", req.Effort())
	}

	req = ChatCompletionRequest{Reasoning: &Reasoning{Effort: "low"}}
	if req.Effort() != "low" {
		t.Errorf("Effort() = %q, want low", req.Effort())
	}
}
