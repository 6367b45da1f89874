package gemini

import "testing"

func TestResolveModel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gemini-2.5-pro", ModelPro25},
		{"openrouter/gemini-2.5-pro", ModelPro25},
		{"gemini-2.5-flash", ModelFlash25},
		{"gemini-2.5-flash-lite", ModelFlashLite25},
		{"gemini-3-pro", ModelPro3},
		{"gemini-3-flash", ModelFlash3},
		{"gemini-3-pro-preview", ModelPro3Preview},
		{"gemini-3-flash-preview", ModelFlash3Preview},
		{"some-flash-model", ModelFlash3},
		{"some-pro-model", ModelPro3},
		{"gpt-4o", ModelDefault},
		{"", ModelDefault},
	}

	for _, tt := range tests {
		if got := ResolveModel(tt.input); got != tt.want {
			t.Errorf("ResolveModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFallbackFor(t *testing.T) {
	if fb, ok := FallbackFor(ModelPro25); !ok || fb != ModelFlash25 {
		t.Errorf("FallbackFor(pro 2.5) = (%q, %v)", fb, ok)
	}
	if fb, ok := FallbackFor(ModelPro3); !ok || fb != ModelFlash3 {
		t.Errorf("FallbackFor(pro 3) = (%q, %v)", fb, ok)
	}
	if _, ok := FallbackFor(ModelFlash25); ok {
		t.Error("flash has no fallback")
	}
	if _, ok := FallbackFor(ModelFlashLite25); ok {
		t.Error("flash lite has no fallback")
	}
}

func TestThinkingBudgetFor(t *testing.T) {
	tests := []struct {
		effort string
		want   int
		ok     bool
	}{
		{"low", 1024, true},
		{"medium", 8192, true},
		{"high", 24576, true},
		{"HIGH", 24576, true},
		{"", 0, false},
		{"extreme", 0, false},
	}
	for _, tt := range tests {
		got, ok := ThinkingBudgetFor(tt.effort)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ThinkingBudgetFor(%q) = (%d, %v), want (%d, %v)", tt.effort, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsRateLimitStatus(t *testing.T) {
	for _, status := range []int{429, 503, 529} {
		if !IsRateLimitStatus(status) {
			t.Errorf("IsRateLimitStatus(%d) = false", status)
		}
	}
	for _, status := range []int{200, 400, 401, 500} {
		if IsRateLimitStatus(status) {
			t.Errorf("IsRateLimitStatus(%d) = true", status)
		}
	}
}

func TestIsThinkingModel(t *testing.T) {
	if !IsThinkingModel(ModelPro25) || !IsThinkingModel(ModelFlash3Preview) {
		t.Error("pro and preview models require thinkingConfig")
	}
	if IsThinkingModel(ModelFlashLite25) {
		t.Error("flash lite does not require thinkingConfig")
	}
}
