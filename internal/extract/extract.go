// Package extract recovers JSON values from generation output that may be
// wrapped in prose or fenced code blocks.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calder-ai/studyhall/internal/domain"
)

// JSON locates the outermost JSON value in raw and returns it. The span runs
// from the first '{' or '[' (whichever appears first) to the last matching
// closing bracket. No bracket balancing is attempted; preambles and
// postambles the model adds around the value are simply cut away. A missing
// or inverted span, or a span that is not valid JSON, returns an error
// wrapping domain.ErrMalformedOutput.
func JSON(raw string) (string, error) {
	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")

	var start int
	var closer string
	switch {
	case objStart == -1 && arrStart == -1:
		return "", fmt.Errorf("%w: no JSON value found", domain.ErrMalformedOutput)
	case arrStart == -1 || (objStart != -1 && objStart < arrStart):
		start = objStart
		closer = "}"
	default:
		start = arrStart
		closer = "]"
	}

	end := strings.LastIndex(raw, closer)
	if end <= start {
		return "", fmt.Errorf("%w: unterminated JSON value", domain.ErrMalformedOutput)
	}

	span := raw[start : end+1]
	if !json.Valid([]byte(span)) {
		return "", fmt.Errorf("%w: extracted span is not valid JSON", domain.ErrMalformedOutput)
	}

	return span, nil
}

// Decode extracts the JSON value in raw and unmarshals it into v. Decode
// failures carry domain.ErrMalformedOutput so callers can branch to their
// degraded defaults with errors.Is.
func Decode(raw string, v any) error {
	span, err := JSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	return nil
}
