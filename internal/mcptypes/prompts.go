// file: internal/mcptypes/prompts.go
package mcptypes

import "encoding/json"

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt describes one server-advertised prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsResult is the prompts/list response.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptRequest is the prompts/get request params.
type GetPromptRequest struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one message in a rendered prompt.
type PromptMessage struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// GetPromptResult is the prompts/get response.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// UnmarshalJSON decodes GetPromptResult, resolving each message's
// content blocks via the same discriminator logic as CallToolResult.
func (r *GetPromptResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description string `json:"description,omitempty"`
		Messages    []struct {
			Role    string            `json:"role"`
			Content []json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Description = raw.Description
	r.Messages = make([]PromptMessage, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		msg := PromptMessage{Role: m.Role, Content: make([]Content, 0, len(m.Content))}
		for _, block := range m.Content {
			c, err := decodeContentBlock(block)
			if err != nil {
				return err
			}
			msg.Content = append(msg.Content, c)
		}
		r.Messages = append(r.Messages, msg)
	}
	return nil
}
