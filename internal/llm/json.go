package llm

import (
	"fmt"
	"strings"
)

// ExtractJSONArray locates the JSON array inside a model response. Models
// routinely wrap structured output in code fences or prose, so we strip
// fences and cut from the first '[' to the matching final ']'.
func ExtractJSONArray(response string) (string, error) {
	s := strings.TrimSpace(response)

	// Strip markdown code fences
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return s[start : end+1], nil
}
