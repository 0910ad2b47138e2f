package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func TestFallback(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.Classification
	}{
		{"no keyword", "The staff were rude to me", domain.Classification{Category: "General", Priority: domain.PriorityLow, Department: "Customer Support"}},
		{"empty", "", domain.Classification{Category: "General", Priority: domain.PriorityLow, Department: "Customer Support"}},
		{"delivery", "Where is my PACKAGE?", domain.Classification{Category: "Delivery", Priority: domain.PriorityMedium, Department: "Logistics"}},
		{"billing", "I want a refund", domain.Classification{Category: "Billing", Priority: domain.PriorityHigh, Department: "Finance"}},
		{"quality", "The lid is defective", domain.Classification{Category: "Product Quality", Priority: domain.PriorityHigh, Department: "Quality Assurance"}},
		{"technical", "Cannot reset my Password", domain.Classification{Category: "Technical Issue", Priority: domain.PriorityMedium, Department: "IT"}},
		// delivery is checked before quality
		{"delivery beats quality", "my package arrived broken", domain.Classification{Category: "Delivery", Priority: domain.PriorityMedium, Department: "Logistics"}},
		{"billing beats technical", "error when I was charged twice", domain.Classification{Category: "Billing", Priority: domain.PriorityHigh, Department: "Finance"}},
		{"substring match", "this was billed wrongly", domain.Classification{Category: "Billing", Priority: domain.PriorityHigh, Department: "Finance"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fallback(tc.text))
		})
	}
}
