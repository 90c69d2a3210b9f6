// file: internal/mcptypes/completion.go
package mcptypes

// CompletionReference names what's being completed against: a prompt
// name or a resource URI template.
type CompletionReference struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the argument being completed, with the partial
// value typed so far.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteRequest is the completion/complete request params.
type CompleteRequest struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// Completion is one candidate set returned for a completion request.
type Completion struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// CompleteResult is the completion/complete response.
type CompleteResult struct {
	Completion Completion `json:"completion"`
}
