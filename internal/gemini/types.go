package gemini

import (
	"encoding/json"
)

// ContentPart represents a single part of a content message. Exactly one of
// Text, FunctionCall, FunctionResponse or InlineData is set.
type ContentPart struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
	InlineData       *InlineData       `json:"inlineData,omitempty"`
}

// UnmarshalJSON: accept thoughtSignature (camelCase) and thought_signature
// (snake_case). Both spellings occur in upstream streams.
func (p *ContentPart) UnmarshalJSON(b []byte) error {
	type alias ContentPart
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = ContentPart(a)
	if p.ThoughtSignature != "" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	if v, ok := raw["thought_signature"]; ok {
		_ = json.Unmarshal(v, &p.ThoughtSignature)
	}
	return nil
}

// Content represents a single message in the chat history for Gemini.
type Content struct {
	Role  string        `json:"role,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
}

// SystemInstruction defines the system-level instructions for the model.
type SystemInstruction struct {
	Role  string        `json:"role,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
}

// FunctionCall represents a tool call emitted by the model.
type FunctionCall struct {
	Name string                 `json:"name,omitempty"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse represents the tool result returned by the client.
type FunctionResponse struct {
	Name     string                 `json:"name,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// InlineData carries base64-encoded media, e.g. an image from a data: URL.
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// GeminiParameterSchema defines the proprietary schema format for Gemini function parameters.
type GeminiParameterSchema struct {
	Type        string                            `json:"type,omitempty"`
	Description string                            `json:"description,omitempty"`
	Properties  map[string]*GeminiParameterSchema `json:"properties,omitempty"`
	Items       *GeminiParameterSchema            `json:"items,omitempty"`
	Required    []string                          `json:"required,omitempty"`
	Enum        []string                          `json:"enum,omitempty"`
}

// FunctionDeclaration defines a function that can be called by the model.
type FunctionDeclaration struct {
	Name        string                 `json:"name,omitempty"`
	Description string                 `json:"description,omitempty"`
	Parameters  *GeminiParameterSchema `json:"parameters,omitempty"`
}

// Tool represents a collection of function declarations, or a native tool
// such as Google Search grounding.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *struct{}             `json:"googleSearch,omitempty"`
}

// FunctionCallingConfig controls how the model may call functions.
type FunctionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

// ToolConfig wraps the function calling configuration.
type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

// ThinkingConfig configures the model's thinking process.
type ThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget"`
}

// GenerationConfig configures the generation process. Temperature always
// serializes; the translator defaults it to 1.0 and an explicit 0 is valid.
type GenerationConfig struct {
	Temperature     float64         `json:"temperature"`
	TopP            float64         `json:"topP,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// GenerateContentRequest represents the request body for the generateContent endpoint.
type GenerateContentRequest struct {
	Model   string          `json:"model,omitempty"`
	Project string          `json:"project,omitempty"`
	Request InternalRequest `json:"request,omitempty"`
}

// InternalRequest is the CloudCode inner request payload.
type InternalRequest struct {
	Contents          []Content          `json:"contents,omitempty"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
	Tools             []Tool             `json:"tools,omitempty"`
	ToolConfig        *ToolConfig        `json:"toolConfig,omitempty"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
}

// UsageMetadata carries upstream token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// Candidate is one generated alternative inside a response payload.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// ResponsePayload is the standard Gemini response shape.
type ResponsePayload struct {
	Candidates    []Candidate    `json:"candidates,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// GenerateContentResponse represents a CloudCode response, which wraps the
// standard Gemini payload in a "response" field.
type GenerateContentResponse struct {
	Response ResponsePayload `json:"response"`
}

// UnmarshalJSON: unwrap the CloudCode "response" wrapper, but also accept a
// bare Gemini payload with candidates at the top level.
func (r *GenerateContentResponse) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Response *ResponsePayload `json:"response"`
	}
	if err := json.Unmarshal(b, &wrapped); err == nil && wrapped.Response != nil {
		r.Response = *wrapped.Response
		return nil
	}
	var bare ResponsePayload
	if err := json.Unmarshal(b, &bare); err != nil {
		return err
	}
	r.Response = bare
	return nil
}

// StreamEnvelope is one SSE event from streamGenerateContent, unwrapped the
// same way as GenerateContentResponse.
type StreamEnvelope struct {
	Response ResponsePayload
}

func (e *StreamEnvelope) UnmarshalJSON(b []byte) error {
	var resp GenerateContentResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return err
	}
	e.Response = resp.Response
	return nil
}

// LoadCodeAssistRequest represents the request body for the loadCodeAssist endpoint.
type LoadCodeAssistRequest struct {
	CloudAICompanionProject string   `json:"cloudaicompanionProject,omitempty"`
	Metadata                Metadata `json:"metadata"`
}

// Metadata contains metadata about the IDE and platform.
type Metadata struct {
	IdeType     string `json:"ideType"`
	Platform    string `json:"platform"`
	PluginType  string `json:"pluginType"`
	DuetProject string `json:"duetProject,omitempty"`
}

// LoadCodeAssistResponse represents the response from the loadCodeAssist endpoint.
type LoadCodeAssistResponse struct {
	CurrentTier             Tier   `json:"currentTier"`
	AllowedTiers            []Tier `json:"allowedTiers"`
	CloudAICompanionProject string `json:"cloudaicompanionProject"`
	GCPManaged              bool   `json:"gcpManaged"`
}

// Tier represents a tier of service.
type Tier struct {
	ID                                 string `json:"id"`
	Name                               string `json:"name"`
	Description                        string `json:"description"`
	UserDefinedCloudAICompanionProject bool   `json:"userDefinedCloudaicompanionProject"`
	IsDefault                          bool   `json:"isDefault,omitempty"`
}

// OnboardUserRequest represents the request body for the onboardUser endpoint.
type OnboardUserRequest struct {
	TierID                  string   `json:"tierId"`
	CloudAICompanionProject string   `json:"cloudaicompanionProject"`
	Metadata                Metadata `json:"metadata"`
}
