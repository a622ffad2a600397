package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
)

func TestParseConditions(t *testing.T) {
	t.Run("empty text means match everything", func(t *testing.T) {
		pred, err := ParseConditions("")
		require.NoError(t, err)
		assert.Empty(t, pred)

		pred, err = ParseConditions("   ")
		require.NoError(t, err)
		assert.Empty(t, pred)
	})

	t.Run("flat object parses with normalized scalars", func(t *testing.T) {
		pred, err := ParseConditions(`{"customer_group": "Retail", "age": 30, "vip": true, "note": null}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"customer_group": "Retail",
			"age":            "30",
			"vip":            "true",
			"note":           "",
		}, pred)
	})

	t.Run("invalid JSON is a malformed predicate", func(t *testing.T) {
		_, err := ParseConditions(`{"customer_group": `)
		var malformed *appErrors.ErrMalformedPredicate
		assert.True(t, errors.As(err, &malformed))
	})

	t.Run("nested values are rejected", func(t *testing.T) {
		_, err := ParseConditions(`{"customer_group": {"$in": ["Retail"]}}`)
		var malformed *appErrors.ErrMalformedPredicate
		require.True(t, errors.As(err, &malformed))

		_, err = ParseConditions(`{"territory": ["Nairobi", "Kisumu"]}`)
		assert.True(t, errors.As(err, &malformed))
	})

	t.Run("top-level array is rejected", func(t *testing.T) {
		_, err := ParseConditions(`["customer_group", "Retail"]`)
		var malformed *appErrors.ErrMalformedPredicate
		assert.True(t, errors.As(err, &malformed))
	})
}

func TestEvaluateConditions(t *testing.T) {
	attrs := map[string]string{
		"customer_group": "Retail",
		"territory":      "Nairobi",
		"gender":         "Female",
	}

	cases := []struct {
		name string
		pred map[string]string
		want bool
	}{
		{"empty predicate matches", map[string]string{}, true},
		{"single match", map[string]string{"territory": "Nairobi"}, true},
		{"all keys must match", map[string]string{"territory": "Nairobi", "gender": "Female"}, true},
		{"one mismatch fails", map[string]string{"territory": "Nairobi", "gender": "Male"}, false},
		{"missing attribute fails", map[string]string{"profession": "Teacher"}, false},
		{"comparison is case sensitive", map[string]string{"territory": "nairobi"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EvaluateConditions(tc.pred, attrs))
		})
	}
}
