package llm

import "strings"

// StripFences removes a Markdown code fence around a JSON payload.
// Models often wrap JSON in ```json blocks despite instructions; the
// language tag is matched case-insensitively.
func StripFences(s string) string {
	out := strings.TrimSpace(s)

	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```")
		if len(out) >= 4 && strings.EqualFold(out[:4], "json") {
			out = out[4:]
		}
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}

	return strings.TrimSpace(out)
}
