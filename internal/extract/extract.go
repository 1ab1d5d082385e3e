// Package extract recovers a JSON object from free-form model output and
// coerces loosely typed values into the models package types.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseablePayload is returned when no JSON object can be recovered.
var ErrUnparseablePayload = errors.New("extract: unparseable payload")

var fenceRe = regexp.MustCompile("```(?:json|JSON)?")

// StripFences removes markdown code-fence markers and trims whitespace.
func StripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// JSON decodes the object embedded in text into v.
//
// The fence-stripped text is tried first. If that fails, the span from the
// first '{' to the last '}' is tried. Anything else is ErrUnparseablePayload.
func JSON(text string, v any) error {
	cleaned := StripFences(text)
	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}
	return nil
}

// Number coerces a decoded JSON value to float64.
//
// Numbers pass through. Strings keep only digits and '.', then parse; a
// parse failure yields 0. Everything else yields 0.
func Number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, _ := parseCleaned(n)
		return f
	}
	return 0
}

// OptionalNumber is Number for fields that may be absent. It returns nil
// for nil, non-numeric types, and strings with no parseable number.
func OptionalNumber(v any) *float64 {
	switch n := v.(type) {
	case nil, bool:
		return nil
	case string:
		f, ok := parseCleaned(n)
		if !ok {
			return nil
		}
		return &f
	case float64, float32, int, int64, json.Number:
		f := Number(n)
		return &f
	}
	return nil
}

func parseCleaned(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
