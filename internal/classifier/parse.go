package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrMalformedResponse is returned when model output cannot be used.
var ErrMalformedResponse = errors.New("malformed classification response")

type modelResponse struct {
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Department string `json:"department"`
	Summary    string `json:"summary"`
}

// ParseResponse extracts a classification from raw model output. Markdown
// fences and prose around the JSON object are tolerated.
func ParseResponse(raw string) (domain.Classification, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return domain.Classification{}, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(body[start:end+1]), &resp); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	category := strings.TrimSpace(resp.Category)
	department := strings.TrimSpace(resp.Department)
	if category == "" || department == "" {
		return domain.Classification{}, fmt.Errorf("%w: missing category or department", ErrMalformedResponse)
	}
	priority, ok := domain.ParsePriority(resp.Priority)
	if !ok {
		return domain.Classification{}, fmt.Errorf("%w: unknown priority %q", ErrMalformedResponse, resp.Priority)
	}

	return domain.Classification{
		Category:   category,
		Priority:   priority,
		Department: department,
		Summary:    strings.TrimSpace(resp.Summary),
	}, nil
}
