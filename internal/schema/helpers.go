// Package schema handles loading, validation, and error reporting against JSON schemas, specifically MCP.
package schema

// file: internal/schema/helpers.go

import (
	"bytes"
)

// calculatePreview returns a short, control-character-free preview of
// data for use in error context, truncated to maxPreviewLen bytes.
func calculatePreview(data []byte) string {
	const maxPreviewLen = 100
	truncated := len(data) > maxPreviewLen
	if truncated {
		data = data[:maxPreviewLen]
	}
	preview := bytes.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '.'
		}
		return r
	}, data)
	if truncated {
		return string(preview) + "..."
	}
	return string(preview)
}
