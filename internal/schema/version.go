// Package schema handles loading, validation, and error reporting against JSON schemas, specifically MCP.
// file: internal/schema/version.go
package schema

import (
	"encoding/json"
	"regexp"
	"strings"
)

// extractSchemaVersion attempts to detect the schema's version from its
// own content and sets v.schemaVersion. Caller holds v.mu.
func (v *Validator) extractSchemaVersion(data []byte) {
	var schemaDoc map[string]interface{}
	logger := v.logger
	if err := json.Unmarshal(data, &schemaDoc); err != nil {
		logger.Warn("failed to unmarshal schema to extract version", "error", err)
		v.schemaVersion = "[unknown]"
		return
	}

	detectedVersion := v.getVersionFromSchemaField(schemaDoc)

	if detectedVersion == "" {
		detectedVersion = v.getVersionFromTopLevelFields(schemaDoc)
	}

	if detectedVersion == "" {
		detectedVersion = v.getVersionFromInfoBlock(schemaDoc)
	}

	if detectedVersion == "" {
		detectedVersion = v.getVersionFromMCPHeuristics(schemaDoc)
	}

	if detectedVersion != "" && detectedVersion != v.schemaVersion {
		logger.Debug("detected schema version", "version", detectedVersion)
		v.schemaVersion = detectedVersion
	} else if detectedVersion == "" && v.schemaVersion == "" {
		logger.Warn("could not detect schema version from content")
		v.schemaVersion = "[unknown]"
	}
}

// getVersionFromSchemaField extracts version from the $schema field.
func (v *Validator) getVersionFromSchemaField(schemaDoc map[string]interface{}) string {
	if schemaField, ok := schemaDoc["$schema"].(string); ok {
		if strings.Contains(schemaField, "draft-2020-12") || strings.Contains(schemaField, "draft/2020-12") {
			return "draft-2020-12"
		}
		if strings.Contains(schemaField, "draft-07") {
			return "draft-07"
		}
	}
	return ""
}

// getVersionFromTopLevelFields extracts version from a top-level 'version' field.
func (v *Validator) getVersionFromTopLevelFields(schemaDoc map[string]interface{}) string {
	if versionField, ok := schemaDoc["version"].(string); ok {
		return versionField
	}
	return ""
}

// getVersionFromInfoBlock extracts version from an 'info.version' field.
func (v *Validator) getVersionFromInfoBlock(schemaDoc map[string]interface{}) string {
	if infoBlock, ok := schemaDoc["info"].(map[string]interface{}); ok {
		if versionField, ok := infoBlock["version"].(string); ok {
			return versionField
		}
	}
	return ""
}

// getVersionFromMCPHeuristics extracts version using MCP-specific patterns in $id or title.
func (v *Validator) getVersionFromMCPHeuristics(schemaDoc map[string]interface{}) string {
	idRegex := regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

	if id, ok := schemaDoc["$id"].(string); ok && strings.Contains(id, "modelcontextprotocol") {
		if matches := idRegex.FindStringSubmatch(id); len(matches) > 1 {
			return matches[1]
		}
	}

	if title, ok := schemaDoc["title"].(string); ok && strings.Contains(strings.ToLower(title), "mcp") {
		if matches := idRegex.FindStringSubmatch(title); len(matches) > 1 {
			return matches[1]
		}
	}

	return ""
}
