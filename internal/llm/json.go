package llm

import "strings"

// StripFences removes markdown code fence wrapping from a model response.
// Handles ```json, ```, and bare fences.
func StripFences(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}

// ExtractObject finds the first balanced JSON object in a response
// (handles prose wrappers). Returns "" when none is found.
func ExtractObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}

// ExtractArray finds the first balanced JSON array in a response.
// Returns "" when none is found.
func ExtractArray(response string) string {
	start := strings.Index(response, "[")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}
