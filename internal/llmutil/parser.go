// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonObjectRegex extracts a JSON object if the response is wrapped in markdown.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	// jsonArrayRegex extracts a JSON array if the response is wrapped in markdown.
	jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")

	// codeBlockRegex extracts content wrapped in markdown, supporting various language tags (python, javascript, etc.).
	codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// ParseJSONResponse attempts to parse an LLM response string into a target Go type using generics.
// It handles common LLM formatting issues, such as wrapping the JSON in markdown code blocks
// or surrounding it with conversational text. When a response embeds both an object and an
// array, each extraction is tried in turn until one unmarshals into the target type.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)

	var firstErr error
	for _, candidate := range extractJSONCandidates(response) {
		var result T
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return &result, nil
		} else if firstErr == nil {
			// Keep the detailed error for the highest-priority extraction.
			firstErr = fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, TruncateString(candidate, 500))
		}
	}
	return nil, firstErr
}

// extractJSONCandidates returns the plausible JSON substrings of a response in
// priority order: fenced blocks first, then object and array boundaries found
// in surrounding prose, then the raw response itself.
func extractJSONCandidates(response string) []string {
	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, existing := range candidates {
			if existing == s {
				return
			}
		}
		candidates = append(candidates, s)
	}

	// Markdown wrapping (most common case).
	if strings.HasPrefix(response, "```") {
		if m := jsonObjectRegex.FindStringSubmatch(response); len(m) > 1 {
			add(m[1])
		}
		if m := jsonArrayRegex.FindStringSubmatch(response); len(m) > 1 {
			add(m[1])
		}
	}

	// Structures embedded in conversational text.
	if fb, lb := strings.Index(response, "{"), strings.LastIndex(response, "}"); fb != -1 && lb > fb {
		add(response[fb : lb+1])
	}
	if fb, lb := strings.Index(response, "["), strings.LastIndex(response, "]"); fb != -1 && lb > fb {
		add(response[fb : lb+1])
	}

	add(response)
	return candidates
}

// CleanCodeOutput removes markdown artifacts (like ```python or ```javascript) from a
// code snippet returned by a model, leaving only the runnable source.
func CleanCodeOutput(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		matches := codeBlockRegex.FindStringSubmatch(content)
		if len(matches) > 1 {
			return strings.TrimSpace(matches[1])
		}
	}
	return content
}

// TruncateString truncates a string to a maximum byte length, appending an
// ellipsis when anything was cut. Page contents and command outputs go through
// this before being embedded in API responses.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient here.
	return s[:maxLen] + "..."
}
