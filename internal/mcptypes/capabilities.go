// file: internal/mcptypes/capabilities.go
package mcptypes

// Implementation identifies either end of a connection by name/version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RootsCapability advertises that the client can list roots and,
// optionally, notify the server when that list changes.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// SamplingCapability advertises that the client can service
// sampling/createMessage requests. Presence alone is the signal; it
// carries no sub-flags.
type SamplingCapability struct{}

// ClientCapabilities is sent by the client during initialize.
type ClientCapabilities struct {
	Roots        *RootsCapability       `json:"roots,omitempty"`
	Sampling     *SamplingCapability    `json:"sampling,omitempty"`
	Experimental map[string]interface{} `json:"experimental,omitempty"`
}

// ToolsCapability advertises server-side tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability advertises server-side resource support,
// including whether resources/subscribe is available.
type ResourcesCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
	Subscribe   bool `json:"subscribe,omitempty"`
}

// PromptsCapability advertises server-side prompt support.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability advertises server-side logging/setLevel support.
type LoggingCapability struct{}

// CompletionsCapability advertises server-side completion/complete
// support.
type CompletionsCapability struct{}

// ServerCapabilities is returned by the server in the initialize
// response. A nil sub-capability means the corresponding method family
// is gated off for this connection.
type ServerCapabilities struct {
	Tools        *ToolsCapability        `json:"tools,omitempty"`
	Resources    *ResourcesCapability    `json:"resources,omitempty"`
	Prompts      *PromptsCapability      `json:"prompts,omitempty"`
	Logging      *LoggingCapability      `json:"logging,omitempty"`
	Completions  *CompletionsCapability  `json:"completions,omitempty"`
	Experimental map[string]interface{}  `json:"experimental,omitempty"`
}

// InitializeRequest is the handshake's first request params.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      Implementation     `json:"clientInfo"`
	Capabilities    ClientCapabilities `json:"capabilities"`
}

// InitializeResult is the handshake response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}
