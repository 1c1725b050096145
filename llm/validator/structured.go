package validator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredMode selects how Structured locates JSON inside a reply's text.
type StructuredMode string

const (
	// ModeStrict requires the entire trimmed text to be one JSON value.
	ModeStrict StructuredMode = "strict"
	// ModeExtract scans for the first balanced {...} or [...] span and
	// parses only that span, tolerating surrounding prose or code fences.
	ModeExtract StructuredMode = "extract"
)

// FieldType names the JSON Kind a Structured schema entry expects.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
)

// Structured validates that a reply's text contains valid JSON, optionally
// matching a field-type schema for a top-level object.
type Structured struct {
	Mode   StructuredMode
	Schema map[string]FieldType // optional; empty means no field checks
}

func (s Structured) Validate(text string) Outcome {
	candidate := text
	if s.Mode == ModeExtract {
		span, err := extractJSONSpan(text)
		if err != nil {
			return fail(err.Error(), "Respond with a single JSON value only, no surrounding text.")
		}
		candidate = span
	}

	var value any
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &value); err != nil {
		return fail("invalid JSON: "+err.Error(), "Your previous reply was not valid JSON. Reply again with valid JSON only.")
	}

	if len(s.Schema) > 0 {
		obj, ok := value.(map[string]any)
		if !ok {
			return fail("expected a JSON object", "Reply with a JSON object matching the required fields.")
		}
		if err := checkSchema(obj, s.Schema); err != nil {
			return fail(err.Error(), "Your JSON did not match the required fields: "+err.Error())
		}
	}

	return ok(value)
}

func checkSchema(obj map[string]any, schema map[string]FieldType) error {
	for field, want := range schema {
		raw, present := obj[field]
		if !present {
			return fmt.Errorf("missing field %q", field)
		}
		if !matchesType(raw, want) {
			return fmt.Errorf("field %q expected %s", field, want)
		}
	}
	return nil
}

func matchesType(v any, want FieldType) bool {
	switch want {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}

// extractJSONSpan finds the first balanced top-level {...} or [...] span in
// text, tracking string/escape state so braces inside string literals are
// ignored.
func extractJSONSpan(text string) (string, error) {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		}
		if start != -1 {
			break
		}
	}
	if start == -1 {
		return "", fmt.Errorf("no JSON object or array found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON span")
}
