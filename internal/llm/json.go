package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Model responses are expected to contain JSON embedded in free text. These
// pre-compiled patterns strip the usual wrappers: markdown code fences,
// trailing commas, comments, and surrounding prose.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	lineCommentRegex   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	jsonObjectRegex    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	jsonArrayRegex     = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseResult is the outcome of a defensive JSON parse. It uses a result
// style rather than an error return so parsing failures never propagate as
// errors past the item boundary.
type ParseResult[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Parse extracts and decodes a JSON value of type T from free-form model
// output. Strategies, in order:
//
//  1. direct parse
//  2. strip markdown code fences
//  3. fix trailing commas and strip comments
//  4. regex-extract the JSON object/array from surrounding prose
//
// context names the call site in log lines.
func Parse[T any](text, context string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseFailure[T]("empty input", context)
	}

	if data, err := tryParse[T](trimmed); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	unfenced := stripCodeFences(trimmed)
	if unfenced != trimmed {
		if data, err := tryParse[T](unfenced); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	cleaned := cleanJSON(unfenced)
	if data, err := tryParse[T](cleaned); err == nil {
		return ParseResult[T]{Success: true, Data: data}
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if data, err := tryParse[T](extracted); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	slog.Debug("all JSON parsing strategies failed",
		"context", context,
		"textPreview", previewText(text, 120))
	return parseFailure[T]("all JSON parsing strategies failed", context)
}

// ParseOrDefault parses JSON from model output and returns fallback on any
// failure.
func ParseOrDefault[T any](text string, fallback T, context string) T {
	result := Parse[T](text, context)
	if result.Success {
		return result.Data
	}
	slog.Debug("JSON parse failed, using fallback", "context", context, "error", result.Error)
	return fallback
}

func tryParse[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

func stripCodeFences(text string) string {
	cleaned := codeFenceRegex.ReplaceAllString(text, "$1")
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

func cleanJSON(text string) string {
	cleaned := trailingCommaRegex.ReplaceAllString(text, "$1")
	cleaned = lineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = blockCommentRegex.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls the first JSON object or array out of mixed content.
// The first-character check keeps an array from being mis-extracted as its
// first element.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return jsonArrayRegex.FindString(text)
	}
	if match := jsonObjectRegex.FindString(text); match != "" {
		return match
	}
	return jsonArrayRegex.FindString(text)
}

func parseFailure[T any](message, context string) ParseResult[T] {
	var zero T
	if context != "" {
		message = context + ": " + message
	}
	return ParseResult[T]{Success: false, Data: zero, Error: message}
}

func previewText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateForLog trims a string for inclusion in an error or log line.
func TruncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:maxLen], len(s))
}
