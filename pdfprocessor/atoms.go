// Package pdfprocessor turns the annual ADEI report PDF into the JSON country
// dataset. This file contains pure text atoms shared by the other molecules.
package pdfprocessor

// EstimateTokenCount provides a rough estimate of tokens in a text.
// It uses an average of 4 characters per token as an approximation,
// which is a reasonable heuristic for English text with GPT-style tokenizers.
// The pipeline uses it to size per-country context before an LLM call.
//
// Example:
//
//	tokens := EstimateTokenCount("Hello, world!") // Returns 3
//	tokens := EstimateTokenCount("")              // Returns 0
func EstimateTokenCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / 4
}

// TruncateText truncates a text to a specified maximum length in bytes.
// If the text is shorter than or equal to maxLen, it is returned unchanged.
func TruncateText(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}

// TruncateTextWithEllipsis truncates text to maxLen and appends "..." if
// truncated. The total length including ellipsis will not exceed maxLen.
// If maxLen is less than 4 there is no room for the ellipsis, so the text is
// simply cut. Used for log previews of chunks and LLM replies.
//
// Example:
//
//	result := TruncateTextWithEllipsis("Hello, world!", 8)  // Returns "Hello..."
//	result := TruncateTextWithEllipsis("Hi", 10)            // Returns "Hi"
func TruncateTextWithEllipsis(text string, maxLen int) string {
	if len(text) <= maxLen {
		return TruncateText(text, maxLen)
	}
	if maxLen < 4 {
		return TruncateText(text, maxLen)
	}
	return text[:maxLen-3] + "..."
}
