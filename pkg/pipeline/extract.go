package pipeline

import "strings"

// extractJSON finds and extracts a JSON object from a response that might
// contain markdown.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	// Look for JSON in code blocks first (most reliable)
	if start := strings.Index(response, "```json"); start != -1 {
		start += 7 // len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	// Look for JSON in generic code blocks
	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			content := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(content, "{") {
				return content
			}
		}
	}

	// Try to find a JSON object anywhere in the response
	if start := strings.Index(response, "{"); start != -1 {
		return extractBalanced(response, start, '{', '}')
	}

	return ""
}

// extractJSONArray finds and extracts a JSON array from a response that
// might contain markdown or prose.
func extractJSONArray(response string) string {
	response = strings.TrimSpace(response)
	if start := strings.Index(response, "["); start != -1 {
		return extractBalanced(response, start, '[', ']')
	}
	return ""
}

// extractBalanced extracts a balanced bracket group starting at the given
// position, properly handling strings that may contain brackets.
func extractBalanced(s string, start int, open, close byte) string {
	if start >= len(s) || s[start] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// stripFences removes a surrounding markdown code fence, if any, and trims
// the result.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop the language tag on the opening fence line
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		first := strings.TrimSpace(text[:nl])
		if first != "" && !strings.ContainsAny(first, " \t") && len(first) < 20 {
			text = text[nl+1:]
		}
	}
	if end := strings.LastIndex(text, "```"); end != -1 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// truncateString truncates a string to the given max length, adding "..."
// if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
