package style

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/kaptinlin/jsonrepair"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"promptarchitect/internal/domain"
)

type extractionPayload struct {
	Prompt     string   `json:"prompt"`
	Attributes []string `json:"attributes"`
}

// parseExtraction turns the model text into a tagged result. Text that does
// not decode, even after repair, becomes the prompt of a fallback result.
func parseExtraction(raw string) domain.Extraction {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.FallbackExtraction(domain.FallbackPromptFailed, nil)
	}

	payload, ok := decodePayload(extractJSONFragment(text))
	if !ok {
		return domain.FallbackExtraction(text, nil)
	}

	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		prompt = domain.FallbackPromptEmpty
	}
	return domain.Extraction{
		Kind:       domain.ExtractionParsed,
		Prompt:     prompt,
		Attributes: normalizeAttributes(payload.Attributes),
	}
}

func decodePayload(fragment string) (extractionPayload, bool) {
	var payload extractionPayload
	if fragment == "" || !strings.HasPrefix(fragment, "{") {
		return payload, false
	}
	if err := json.Unmarshal([]byte(fragment), &payload); err == nil {
		return payload, true
	}
	repaired, err := jsonrepair.JSONRepair(fragment)
	if err != nil {
		return payload, false
	}
	payload = extractionPayload{}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// normalizeAttributes trims, de-duplicates case-insensitively, title-cases
// all-lowercase labels and caps the list at domain.MaxAttributes.
func normalizeAttributes(attrs []string) []string {
	title := cases.Title(language.English)
	seen := make(map[string]struct{}, len(attrs))
	out := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		attr = strings.Join(strings.Fields(attr), " ")
		if attr == "" {
			continue
		}
		if isLower(attr) {
			attr = title.String(attr)
		}
		key := strings.ToLower(attr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, attr)
		if len(out) == domain.MaxAttributes {
			break
		}
	}
	return out
}

func isLower(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	} else if start >= 0 {
		// truncated output; leave the tail for jsonrepair
		text = text[start:]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
