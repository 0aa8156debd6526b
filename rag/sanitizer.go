package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Fixed user-facing replacements for rejected answers. The raw malformed
// output is never shown to the caller.
const (
	ApologyTooLong    = "Sorry, the generated response was too long. Please try a more specific question."
	ApologyBinary     = "Sorry, the response contained binary data. Please try a different question."
	ApologyRepetitive = "Sorry, the response contained repetitive data. Please try a different question."
	ApologyEncoding   = "Sorry, the response contained invalid characters. Please try a different question."
	ApologyGeneration = "Sorry, there was an error processing your query. Please try a different question or check your documents."
)

// maxAnswerChars rejects runaway generations.
const maxAnswerChars = 2000

// answerDelimiter is the marker the prompt template ends with. Anything
// before its last occurrence is leaked prompt text.
const answerDelimiter = "Answer:"

// binaryMarkers flag embedded null bytes and their escaped textual forms.
var binaryMarkers = []string{"\x00", "\\x00", "0x00"}

// Sanitize validates a raw generated answer and cleans it for the caller.
// Each check short-circuits: on rejection it returns the fixed apology for
// that failure mode plus an error wrapping ErrMalformedOutput. Surviving
// text has control characters stripped and leaked prompt text trimmed.
func Sanitize(raw string) (string, error) {
	if utf8.RuneCountInString(raw) > maxAnswerChars {
		return ApologyTooLong, fmt.Errorf("%w: answer exceeds %d characters", ErrMalformedOutput, maxAnswerChars)
	}

	for _, marker := range binaryMarkers {
		if strings.Contains(raw, marker) {
			return ApologyBinary, fmt.Errorf("%w: answer contains binary data", ErrMalformedOutput)
		}
	}

	if reason := repetitionReason(raw); reason != "" {
		return ApologyRepetitive, fmt.Errorf("%w: %s", ErrMalformedOutput, reason)
	}

	valid := strings.ToValidUTF8(raw, "")
	if float64(utf8.RuneCountInString(valid)) < 0.9*float64(utf8.RuneCountInString(raw)) {
		return ApologyEncoding, fmt.Errorf("%w: answer lost over 10%% of characters in UTF-8 round trip", ErrMalformedOutput)
	}

	cleaned := stripControlChars(valid)

	if idx := strings.LastIndex(cleaned, answerDelimiter); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[idx+len(answerDelimiter):])
	}

	return cleaned, nil
}

// repetitionReason reports why an answer looks like degenerate repetition,
// or "" if it looks fine. Only answers over 100 characters are checked.
func repetitionReason(raw string) string {
	runes := []rune(raw)
	if len(runes) <= 100 {
		return ""
	}

	unique := make(map[rune]bool, len(runes))
	for _, r := range runes {
		unique[r] = true
	}
	if ratio := float64(len(unique)) / float64(len(runes)); ratio < 0.05 {
		return fmt.Sprintf("unique character ratio %.3f below 0.05", ratio)
	}

	head := string(runes[:5])
	if count := strings.Count(raw, head); count > 10 {
		return fmt.Sprintf("leading pattern %q recurs %d times", head, count)
	}

	return ""
}

// stripControlChars removes non-printable control characters, keeping common
// whitespace.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, s)
}
