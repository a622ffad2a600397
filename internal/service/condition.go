package service

import (
	"encoding/json"
	"strconv"
	"strings"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
)

// ParseConditions parses a rule's conditions text into a flat predicate.
// The model is a JSON object of attribute -> expected scalar, combined
// with implicit AND. Arrays and nested objects are rejected so a richer
// operator grammar can claim that syntax later.
func ParseConditions(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]string{}, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, appErrors.NewMalformedPredicate(err.Error())
	}

	pred := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			pred[key] = v
		case float64:
			pred[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			pred[key] = strconv.FormatBool(v)
		case nil:
			pred[key] = ""
		default:
			return nil, appErrors.NewMalformedPredicate("condition values must be scalar, got nested value for key " + key)
		}
	}

	return pred, nil
}

// EvaluateConditions reports whether every predicate key matches the
// entity attribute exactly. A key missing from the attributes is false.
func EvaluateConditions(pred map[string]string, attrs map[string]string) bool {
	for key, expected := range pred {
		actual, ok := attrs[key]
		if !ok || actual != expected {
			return false
		}
	}
	return true
}
