package redact

import (
	"regexp"
	"strings"
)

var (
	// "Bearer <token>" as sent in the OpenAI Authorization header.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// api_key=..., x-goog-api-key: ... and friends.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(x[_-]goog[_-]api[_-]key|openai[_-]api[_-]key|gemini[_-]api[_-]key|api[_-]?key)\b\s*[:=]\s*[^\s"'&]+`)

	// Gemini REST URLs carry the key as a query parameter.
	queryKeyRe = regexp.MustCompile(`([?&]key=)[^\s"'&]+`)

	// Bare OpenAI secret keys.
	openAIKeyRe = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)
)

// Secrets removes credential-bearing substrings from an error or log message.
// It is safe to call on any string.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = queryKeyRe.ReplaceAllString(out, "${1}<redacted>")
	out = openAIKeyRe.ReplaceAllString(out, "<redacted>")
	return strings.TrimSpace(out)
}
