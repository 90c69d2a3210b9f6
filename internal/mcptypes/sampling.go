// file: internal/mcptypes/sampling.go
package mcptypes

import "encoding/json"

// ModelHint is a soft preference for a model name or family.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// ModelPreferences steers server-side model selection for a
// sampling/createMessage request. All fields are advisory.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         float64     `json:"costPriority,omitempty"`
	SpeedPriority        float64     `json:"speedPriority,omitempty"`
	IntelligencePriority float64     `json:"intelligencePriority,omitempty"`
}

// SamplingMessage is one turn in a sampling conversation.
type SamplingMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// CreateMessageRequest is the sampling/createMessage request params,
// sent by a server and serviced by the client's own configured model.
type CreateMessageRequest struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
	Temperature      float64           `json:"temperature,omitempty"`
	IncludeContext   string            `json:"includeContext,omitempty"`
}

// CreateMessageResult is the sampling/createMessage response the client
// returns after running the request through its own model.
type CreateMessageResult struct {
	Role       string  `json:"role"`
	Content    Content `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason,omitempty"`
}

// UnmarshalJSON resolves the polymorphic Content field by its "type" tag.
func (m *SamplingMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := decodeContentBlock(raw.Content)
	if err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = c
	return nil
}

// UnmarshalJSON resolves the polymorphic Content field by its "type" tag.
func (r *CreateMessageResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		Model      string          `json:"model"`
		StopReason string          `json:"stopReason,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := decodeContentBlock(raw.Content)
	if err != nil {
		return err
	}
	r.Role = raw.Role
	r.Content = c
	r.Model = raw.Model
	r.StopReason = raw.StopReason
	return nil
}
