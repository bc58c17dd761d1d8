package openai

import "strconv"

// parseRetryAfter parses an HTTP Retry-After header (seconds form only,
// which is what OpenAI-compatible 429/503 responses send) into whole
// seconds, or 0 if absent/unparseable.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	n, err := strconv.Atoi(header)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
