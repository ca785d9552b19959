package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Generator produces a model completion for the given system instruction and
// user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// ExtractJSON strips markdown code fences and stray backticks that models tend
// to wrap JSON payloads in.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// DecodeLoose unmarshals the JSON object embedded in raw into out. Scalar
// values are coerced between strings, numbers and booleans since models do not
// reliably honor the requested types.
func DecodeLoose(raw string, out any) error {
	cleaned := ExtractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}

	return nil
}
