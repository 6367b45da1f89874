// Package translate converts between the OpenAI chat completion dialect and
// the CloudCode Gemini request/response shapes.
package translate

import (
	"fmt"
	"strings"

	"geminibridge/internal/gemini"
)

// MapFunctionParameters converts an OpenAI JSON-schema parameters object into
// the Gemini schema dialect. A missing or malformed parameters object maps to
// an empty OBJECT schema so the declaration stays valid.
func MapFunctionParameters(params interface{}) *gemini.GeminiParameterSchema {
	node, ok := params.(map[string]interface{})
	if !ok {
		return &gemini.GeminiParameterSchema{Type: "OBJECT"}
	}
	return mapSchemaNode(node)
}

func mapSchemaNode(node map[string]interface{}) *gemini.GeminiParameterSchema {
	// anyOf/oneOf have no Gemini equivalent: collapse to the first usable
	// alternative, preferring non-null branches.
	for _, key := range []string{"anyOf", "oneOf"} {
		alts, ok := node[key].([]interface{})
		if !ok || len(alts) == 0 {
			continue
		}
		chosen := pickAlternative(alts)
		if chosen == nil {
			continue
		}
		s := mapSchemaNode(chosen)
		if s.Description == "" {
			if desc, ok := node["description"].(string); ok {
				s.Description = desc
			}
		}
		return s
	}

	s := &gemini.GeminiParameterSchema{}

	switch t := node["type"].(type) {
	case string:
		s.Type = strings.ToUpper(t)
	case []interface{}:
		// Nullable union types like ["string", "null"]: take the first
		// non-null member.
		for _, alt := range t {
			if str, ok := alt.(string); ok && str != "null" {
				s.Type = strings.ToUpper(str)
				break
			}
		}
	}

	if desc, ok := node["description"].(string); ok {
		s.Description = desc
	}

	if props, ok := node["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*gemini.GeminiParameterSchema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]interface{}); ok {
				s.Properties[name] = mapSchemaNode(child)
			}
		}
		if s.Type == "" {
			s.Type = "OBJECT"
		}
	}

	if items, ok := node["items"].(map[string]interface{}); ok {
		s.Items = mapSchemaNode(items)
		if s.Type == "" {
			s.Type = "ARRAY"
		}
	}

	if required, ok := node["required"].([]interface{}); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}

	if enum, ok := node["enum"].([]interface{}); ok {
		for _, e := range enum {
			s.Enum = append(s.Enum, fmt.Sprintf("%v", e))
		}
		if s.Type == "" {
			s.Type = "STRING"
		}
	}

	return s
}

// pickAlternative returns the first non-null object branch, or the first
// object branch when all are null.
func pickAlternative(alts []interface{}) map[string]interface{} {
	var first map[string]interface{}
	for _, alt := range alts {
		node, ok := alt.(map[string]interface{})
		if !ok {
			continue
		}
		if first == nil {
			first = node
		}
		if t, ok := node["type"].(string); !ok || t != "null" {
			return node
		}
	}
	return first
}
