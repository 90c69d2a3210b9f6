// file: internal/mcptypes/tools.go
package mcptypes

import "encoding/json"

// ToolAnnotations are hints about a tool's behavior; none are binding.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
}

// Tool describes one callable tool a server advertises.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema,omitempty"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// ListToolsResult is the tools/list response.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolRequest is the tools/call request params.
type CallToolRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is satisfied by every content block a tool result or prompt
// message can carry.
type Content interface {
	GetType() string
}

// TextContent is the text content block.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GetType implements Content.
func (t TextContent) GetType() string { return t.Type }

// NewTextContent builds a TextContent with the type tag set.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// CallToolResult is the tools/call response.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// UnmarshalJSON decodes CallToolResult, resolving each content block's
// concrete type by its "type" discriminator the same way the router
// resolves inbound requests by method name.
func (r *CallToolResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content []json.RawMessage `json:"content"`
		IsError bool              `json:"isError,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.IsError = raw.IsError
	r.Content = make([]Content, 0, len(raw.Content))
	for _, block := range raw.Content {
		c, err := decodeContentBlock(block)
		if err != nil {
			return err
		}
		r.Content = append(r.Content, c)
	}
	return nil
}

func decodeContentBlock(block json.RawMessage) (Content, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(block, &tag); err != nil {
		return nil, err
	}

	switch tag.Type {
	case "text":
		var tc TextContent
		if err := json.Unmarshal(block, &tc); err != nil {
			return nil, err
		}
		return tc, nil
	default:
		// Forward-compatible: unknown content block types are kept as
		// raw text-shaped content rather than rejected outright.
		var tc TextContent
		_ = json.Unmarshal(block, &tc)
		tc.Type = tag.Type
		return tc, nil
	}
}
