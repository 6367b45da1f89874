package gemini

import "strings"

// Code Assist API constants.
const (
	CodeAssistEndpoint   = "https://cloudcode-pa.googleapis.com"
	CodeAssistAPIVersion = "v1internal"
)

// Canonical upstream model identifiers.
const (
	ModelPro25            = "gemini-2.5-pro"
	ModelFlash25          = "gemini-2.5-flash"
	ModelFlashLite25      = "gemini-2.5-flash-lite"
	ModelPro3             = "gemini-3-pro"
	ModelFlash3           = "gemini-3-flash"
	ModelPro3Preview      = "gemini-3-pro-preview"
	ModelFlash3Preview    = "gemini-3-flash-preview"
	ModelDefault          = ModelPro25
	DefaultTemperature    = 1.0
	DefaultThinkingBudget = 8192
)

// thinkingModels are the models for which thinkingConfig is mandatory.
var thinkingModels = map[string]bool{
	ModelPro25:         true,
	ModelFlash25:       true,
	ModelPro3:          true,
	ModelFlash3:        true,
	ModelPro3Preview:   true,
	ModelFlash3Preview: true,
}

// thinkingBudgets maps a reasoning effort to an upstream thinking budget.
var thinkingBudgets = map[string]int{
	"low":    1024,
	"medium": 8192,
	"high":   24576,
}

// fallbackModels maps each model to the model the proxy swaps in when the
// upstream rate-limits. A model with no entry is at the bottom of its chain.
var fallbackModels = map[string]string{
	ModelPro25:       ModelFlash25,
	ModelPro3:        ModelFlash3,
	ModelPro3Preview: ModelFlash3Preview,
}

// rateLimitStatuses are the upstream HTTP statuses treated as rate limiting
// for fallback purposes. 529 is the overload code some Google frontends use.
var rateLimitStatuses = map[int]bool{
	429: true,
	503: true,
	529: true,
}

// IsThinkingModel reports whether thinkingConfig must always be set for model.
func IsThinkingModel(model string) bool {
	return thinkingModels[model]
}

// ThinkingBudgetFor resolves a reasoning effort to a token budget.
func ThinkingBudgetFor(effort string) (int, bool) {
	budget, ok := thinkingBudgets[strings.ToLower(effort)]
	return budget, ok
}

// FallbackFor returns the fallback model for the given model, if any.
func FallbackFor(model string) (string, bool) {
	fb, ok := fallbackModels[model]
	return fb, ok
}

// IsRateLimitStatus reports whether an upstream status triggers fallback.
func IsRateLimitStatus(status int) bool {
	return rateLimitStatuses[status]
}

// ResolveModel converts any model name containing "pro", "flash", or "lite"
// to our normalized CloudCode models. Unknown names default to the primary
// thinking model.
func ResolveModel(model string) string {
	lowerModel := strings.ToLower(model)
	if strings.Contains(lowerModel, "lite") {
		return ModelFlashLite25
	} else if strings.Contains(lowerModel, "3-flash-preview") {
		return ModelFlash3Preview
	} else if strings.Contains(lowerModel, "3-pro-preview") {
		return ModelPro3Preview
	} else if strings.Contains(lowerModel, "3-flash") {
		return ModelFlash3
	} else if strings.Contains(lowerModel, "3-pro") {
		return ModelPro3
	} else if strings.Contains(lowerModel, "2.5-flash") {
		return ModelFlash25
	} else if strings.Contains(lowerModel, "2.5-pro") {
		return ModelPro25
	} else if strings.Contains(lowerModel, "flash") {
		return ModelFlash3
	} else if strings.Contains(lowerModel, "pro") {
		return ModelPro3
	}
	return ModelDefault
}

// KnownModels lists the models the proxy advertises on /v1/models.
func KnownModels() []string {
	return []string{
		ModelPro25,
		ModelFlash25,
		ModelFlashLite25,
		ModelPro3,
		ModelFlash3,
		ModelPro3Preview,
		ModelFlash3Preview,
	}
}
