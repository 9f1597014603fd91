// Package json pulls a JSON value out of free-form model output.
//
// Models asked for JSON still wrap it in prose or markdown fences. The
// helpers here find the first decodable object or array in such text.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no JSON value can be found in a response.
var ErrNoJSON = errors.New("no JSON value found in response")

const previewLength = 100

// ExtractJSON returns the raw JSON text embedded in response.
func ExtractJSON(response string) (string, error) {
	body := stripFence(response)
	if json.Valid([]byte(body)) {
		return body, nil
	}

	for i := 0; i < len(body); i++ {
		if body[i] != '{' && body[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(body[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return string(bytes.TrimSpace(raw)), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNoJSON, preview(response))
}

// ExtractJSONFromResponse extracts the JSON embedded in response and decodes
// it into a T.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var out T
	if err := ExtractInto(response, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ExtractInto is the non-generic form of ExtractJSONFromResponse.
func ExtractInto(response string, target any) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// stripFence removes a surrounding ```json or ``` markdown fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}
	return s
}
