package llm

import "strings"

// ExtractJSONObject strips markdown fences and surrounding prose from a
// model reply, returning the outermost {...} span. The input is returned
// trimmed when no object is found.
func ExtractJSONObject(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
		content = strings.TrimSpace(strings.TrimSuffix(content, "```"))
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}
