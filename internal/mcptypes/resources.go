// file: internal/mcptypes/resources.go
package mcptypes

import "encoding/json"

// Resource describes one readable URI a server advertises.
type Resource struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the resources/list response.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ResourceTemplate describes a URI template a server advertises under
// resources/templates/list.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourceTemplatesResult is the resources/templates/list response.
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// ReadResourceRequest is the resources/read request params.
type ReadResourceRequest struct {
	URI string `json:"uri"`
}

// ResourceContents is the common envelope both text and blob resource
// contents embed.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextResourceContents is a resource read result delivered as text.
type TextResourceContents struct {
	ResourceContents
	Text string `json:"text"`
}

// BlobResourceContents is a resource read result delivered as
// base64-encoded binary data.
type BlobResourceContents struct {
	ResourceContents
	Blob string `json:"blob"`
}

// ReadResourceResult is the resources/read response. Contents elements
// are decoded generically since a server may mix text and blob entries
// in one read (e.g. a multi-part document).
type ReadResourceResult struct {
	Contents []interface{} `json:"contents"`
}

// DecodeResourceContents classifies one element of ReadResourceResult's
// Contents into its concrete TextResourceContents or BlobResourceContents
// shape, by presence of the "text" vs "blob" field.
func DecodeResourceContents(raw json.RawMessage) (interface{}, error) {
	var tag struct {
		Text *string `json:"text"`
		Blob *string `json:"blob"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}

	if tag.Blob != nil {
		var b BlobResourceContents
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	}

	var t TextResourceContents
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// SubscribeResourceRequest is the resources/subscribe request params.
type SubscribeResourceRequest struct {
	URI string `json:"uri"`
}

// UnsubscribeResourceRequest is the resources/unsubscribe request params.
type UnsubscribeResourceRequest struct {
	URI string `json:"uri"`
}

// ResourceUpdatedParams is the notifications/resources/updated payload.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}
