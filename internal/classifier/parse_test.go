package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestParseResponse(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		got, err := ParseResponse(`{"category":"Billing","priority":"High","department":"Finance","summary":"Charged twice."}`)
		require.NoError(t, err)
		assert.Equal(t, domain.Classification{Category: "Billing", Priority: domain.PriorityHigh, Department: "Finance", Summary: "Charged twice."}, got)
	})

	t.Run("fenced with prose", func(t *testing.T) {
		raw := "```json\nHere you go:\n{\"category\": \"Delivery\", \"priority\": \"critical\", \"department\": \"Logistics\"}\n```"
		got, err := ParseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "Delivery", got.Category)
		assert.Equal(t, domain.PriorityCritical, got.Priority)
		assert.Empty(t, got.Summary)
	})

	rejected := map[string]string{
		"not JSON":           "I think this is a billing issue.",
		"broken JSON":        `{"category": "Billing", "priority": }`,
		"missing department": `{"category":"Billing","priority":"High"}`,
		"blank category":     `{"category":"  ","priority":"High","department":"Finance"}`,
		"unknown priority":   `{"category":"Billing","priority":"Urgent","department":"Finance"}`,
	}
	for name, raw := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}
