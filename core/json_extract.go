package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// JSON parsing errors
var (
	// ErrNoJSONFound is returned when no JSON object is found in the text.
	ErrNoJSONFound = errors.New("no JSON object found in text")
	// ErrInvalidJSON is returned when JSON parsing fails.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// ExtractJSONFromText extracts the first JSON object from a text string.
// It finds the first '{' and last '}' and extracts the text between them,
// which also strips markdown code fences the model may wrap around its
// output. Returns the extracted JSON string or an error if no valid JSON
// boundaries are found.
//
// This is a pure function (atom) with no external dependencies.
//
// Example:
//
//	jsonStr, err := core.ExtractJSONFromText("```json\n{\"country_name\": \"Qatar\"}\n```")
//	if err != nil {
//	    return err
//	}
//	// jsonStr == `{"country_name": "Qatar"}`
func ExtractJSONFromText(text string) (string, error) {
	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")

	if startIdx == -1 || endIdx == -1 || startIdx > endIdx {
		return "", ErrNoJSONFound
	}

	return text[startIdx : endIdx+1], nil
}

// DecodeJSONInto extracts the JSON object embedded in text and unmarshals
// it into target. This is the workhorse for turning model output into typed
// records: boundary extraction tolerates prose and code fences around the
// object, and unmarshal errors are wrapped as ErrInvalidJSON so callers can
// distinguish a malformed payload from a missing one.
func DecodeJSONInto(text string, target interface{}) error {
	jsonStr, err := ExtractJSONFromText(text)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(jsonStr), target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// ParseJSONToMap parses a JSON string into a map[string]interface{}.
// Returns the parsed map or an error if parsing fails.
//
// This is a pure function (atom) with no external dependencies.
func ParseJSONToMap(jsonStr string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return result, nil
}

// GetStringFieldFromJSON parses JSON and returns a specific string field.
// Returns an error if the JSON is invalid or the field doesn't exist/isn't a string.
//
// This is a pure function (atom) with no external dependencies.
//
// Example:
//
//	value, err := core.GetStringFieldFromJSON(`{"country_name": "Oman"}`, "country_name")
//	// value == "Oman"
func GetStringFieldFromJSON(jsonStr string, fieldName string) (string, error) {
	data, err := ParseJSONToMap(jsonStr)
	if err != nil {
		return "", err
	}

	value, ok := data[fieldName].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid '%s' field", fieldName)
	}

	return value, nil
}

// NormalizeNewlines converts escaped newlines (\n as literal backslash-n) to actual newlines.
// Model output sometimes escapes newlines inside narrative fields.
//
// This is a pure function (atom) with no external dependencies.
func NormalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\\n", "\n")
}
