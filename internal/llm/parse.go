package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/schoolmon/internal/model"
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*")

// ParseExtraction decodes raw oracle output into a candidate extraction.
// Markdown fences and any prose around the outermost JSON object are
// discarded. Field-level oddities are tolerated by the model decoders; only
// output with no decodable object fails.
func ParseExtraction(raw string) (model.CandidateExtraction, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(raw, ""))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return model.CandidateExtraction{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedExtraction)
	}

	var extraction model.CandidateExtraction
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &extraction); err != nil {
		return model.CandidateExtraction{}, fmt.Errorf("%w: %v", ErrMalformedExtraction, err)
	}

	return extraction, nil
}
