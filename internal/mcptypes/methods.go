// file: internal/mcptypes/methods.go
package mcptypes

// Method names the core handles at design level.
const (
	MethodInitialize             = "initialize"
	MethodPing                   = "ping"
	MethodPromptsList            = "prompts/list"
	MethodPromptsGet             = "prompts/get"
	MethodResourcesList          = "resources/list"
	MethodResourceTemplatesList  = "resources/templates/list"
	MethodResourcesRead          = "resources/read"
	MethodResourcesSubscribe     = "resources/subscribe"
	MethodResourcesUnsubscribe   = "resources/unsubscribe"
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	MethodLoggingSetLevel        = "logging/setLevel"
	MethodCompletionComplete     = "completion/complete"
	MethodRootsList              = "roots/list"
	MethodSamplingCreateMessage  = "sampling/createMessage"
)

// Notification method names.
const (
	NotificationInitialized          = "notifications/initialized"
	NotificationCancelled            = "notifications/cancelled"
	NotificationProgress             = "notifications/progress"
	NotificationMessage              = "notifications/message"
	NotificationResourcesListChanged = "notifications/resources/list_changed"
	NotificationResourcesUpdated     = "notifications/resources/updated"
	NotificationPromptsListChanged   = "notifications/prompts/list_changed"
	NotificationToolsListChanged     = "notifications/tools/list_changed"
	NotificationRootsListChanged     = "notifications/roots/list_changed"
)

// RequiredCapability names the server capability family gating a method,
// or "" if the method is always allowed / forward-compatible.
func RequiredCapability(method string) string {
	switch {
	case method == MethodInitialize, method == MethodPing:
		return ""
	case method == MethodPromptsList || method == MethodPromptsGet:
		return "prompts"
	case method == MethodResourcesList || method == MethodResourceTemplatesList ||
		method == MethodResourcesRead || method == MethodResourcesUnsubscribe:
		return "resources"
	case method == MethodResourcesSubscribe:
		return "resources.subscribe"
	case method == MethodToolsList || method == MethodToolsCall:
		return "tools"
	case method == MethodLoggingSetLevel:
		return "logging"
	case method == MethodCompletionComplete:
		return "completions"
	default:
		return ""
	}
}

// MethodShape describes a method's request-param and response-result
// Go types for the registry, so the decode path never needs reflection
// beyond a single type switch at registration time.
type MethodShape struct {
	NewParams func() interface{}
	NewResult func() interface{}
}

// registry is the static method -> shape table. Unknown inbound request
// methods are rejected with MethodNotFound; unknown notifications are
// dropped silently. Unknown outbound methods still encode (forward
// compatibility per capability gating), they just have no typed result
// shape — callers decode the raw json.RawMessage themselves in that case.
var registry = map[string]MethodShape{
	MethodInitialize: {
		NewParams: func() interface{} { return &InitializeRequest{} },
		NewResult: func() interface{} { return &InitializeResult{} },
	},
	MethodPing: {
		NewParams: func() interface{} { return &struct{}{} },
		NewResult: func() interface{} { return &struct{}{} },
	},
	MethodPromptsList: {
		NewResult: func() interface{} { return &ListPromptsResult{} },
	},
	MethodPromptsGet: {
		NewParams: func() interface{} { return &GetPromptRequest{} },
		NewResult: func() interface{} { return &GetPromptResult{} },
	},
	MethodResourcesList: {
		NewResult: func() interface{} { return &ListResourcesResult{} },
	},
	MethodResourceTemplatesList: {
		NewResult: func() interface{} { return &ListResourceTemplatesResult{} },
	},
	MethodResourcesRead: {
		NewParams: func() interface{} { return &ReadResourceRequest{} },
		NewResult: func() interface{} { return &ReadResourceResult{} },
	},
	MethodResourcesSubscribe: {
		NewParams: func() interface{} { return &SubscribeResourceRequest{} },
		NewResult: func() interface{} { return &struct{}{} },
	},
	MethodResourcesUnsubscribe: {
		NewParams: func() interface{} { return &UnsubscribeResourceRequest{} },
		NewResult: func() interface{} { return &struct{}{} },
	},
	MethodToolsList: {
		NewResult: func() interface{} { return &ListToolsResult{} },
	},
	MethodToolsCall: {
		NewParams: func() interface{} { return &CallToolRequest{} },
		NewResult: func() interface{} { return &CallToolResult{} },
	},
	MethodLoggingSetLevel: {
		NewParams: func() interface{} { return &SetLevelRequest{} },
		NewResult: func() interface{} { return &struct{}{} },
	},
	MethodCompletionComplete: {
		NewParams: func() interface{} { return &CompleteRequest{} },
		NewResult: func() interface{} { return &CompleteResult{} },
	},
	MethodRootsList: {
		NewResult: func() interface{} { return &ListRootsResult{} },
	},
	MethodSamplingCreateMessage: {
		NewParams: func() interface{} { return &CreateMessageRequest{} },
		NewResult: func() interface{} { return &CreateMessageResult{} },
	},
}

// Shape looks up a method's registered shape. ok is false for unknown
// methods, letting the caller apply the closed-set-vs-forward-compat
// policy (reject inbound requests, drop inbound notifications, pass
// through outbound sends).
func Shape(method string) (MethodShape, bool) {
	shape, ok := registry[method]
	return shape, ok
}

// IsKnownMethod reports whether method is in the closed set the core
// understands at design level.
func IsKnownMethod(method string) bool {
	_, ok := registry[method]
	return ok
}

// SetLevelRequest is the logging/setLevel request params.
type SetLevelRequest struct {
	Level string `json:"level"`
}

// ListRootsResult is the roots/list response the client returns to a
// server-initiated request.
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}

// Root is one client-advertised base location.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}
