package classifier

import (
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
)

type keywordRule struct {
	keywords []string
	result   domain.Classification
}

// rules are evaluated in order; the first rule with a matching keyword wins.
var rules = []keywordRule{
	{
		keywords: []string{"late", "delivery", "shipping", "package"},
		result:   domain.Classification{Category: "Delivery", Priority: domain.PriorityMedium, Department: "Logistics"},
	},
	{
		keywords: []string{"refund", "charge", "bill", "money"},
		result:   domain.Classification{Category: "Billing", Priority: domain.PriorityHigh, Department: "Finance"},
	},
	{
		keywords: []string{"broken", "damage", "defect"},
		result:   domain.Classification{Category: "Product Quality", Priority: domain.PriorityHigh, Department: "Quality Assurance"},
	},
	{
		keywords: []string{"login", "password", "error"},
		result:   domain.Classification{Category: "Technical Issue", Priority: domain.PriorityMedium, Department: "IT"},
	},
}

var defaultClassification = domain.Classification{
	Category:   "General",
	Priority:   domain.PriorityLow,
	Department: "Customer Support",
}

// Fallback classifies text with fixed keyword rules. Matching is a
// case-insensitive substring test.
func Fallback(text string) domain.Classification {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.result
			}
		}
	}
	return defaultClassification
}
