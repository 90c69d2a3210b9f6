package schema

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/mcpclient/internal/logging"
)

// loadSchemaFromURI loads schema bytes from a file:// or http(s):// URI.
// It's only reached when SchemaConfig.SchemaOverrideURI is set.
func loadSchemaFromURI(ctx context.Context, uri string, logger logging.Logger, httpClient *http.Client) ([]byte, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schema override URI: %s", uri)
	}

	logger.Info("loading schema override", "uri", uri, "scheme", parsed.Scheme)

	switch parsed.Scheme {
	case "file":
		return loadSchemaFile(parsed, uri, logger)
	case "http", "https":
		return loadSchemaHTTP(ctx, uri, logger, httpClient)
	default:
		return nil, NewValidationError(ErrSchemaLoadFailed,
			fmt.Sprintf("unsupported schema override URI scheme: %s", parsed.Scheme), nil).
			WithContext("uri", uri)
	}
}

// windowsDriveLetterPath strips the leading slash url.Parse leaves on a
// Windows drive-letter path (file:///C:/x -> /C:/x, needs to be C:/x).
func windowsDriveLetterPath(p string) string {
	if os.PathSeparator == '\\' && strings.HasPrefix(p, "/") && len(p) > 2 && p[2] == ':' {
		return p[1:]
	}
	return p
}

func loadSchemaFile(parsed *url.URL, uri string, logger logging.Logger) ([]byte, error) {
	filePath := windowsDriveLetterPath(parsed.Path)
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	} else {
		logger.Warn("could not determine absolute path for schema file URI", "path", parsed.Path, "error", err)
	}

	// #nosec G304 -- path comes from trusted configuration, not user input.
	data, err := os.ReadFile(filePath)
	if err != nil {
		code := ErrSchemaLoadFailed
		if os.IsNotExist(err) {
			code = ErrSchemaNotFound
		}
		return nil, NewValidationError(code, fmt.Sprintf("failed to read schema override file: %s", filePath), err).
			WithContext("uri", uri)
	}
	logger.Debug("read schema override file", "path", filePath, "sizeBytes", len(data))
	return data, nil
}

func loadSchemaHTTP(ctx context.Context, uri string, logger logging.Logger, httpClient *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, NewValidationError(ErrSchemaLoadFailed, "failed to create HTTP request for schema override URL",
			errors.Wrap(err, "http.NewRequestWithContext")).WithContext("url", uri)
	}
	req.Header.Set("Accept", "application/json, application/schema+json, */*")
	req.Header.Set("User-Agent", "mcpclient-schema-loader/0.1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, NewValidationError(ErrSchemaLoadFailed, "failed to fetch schema from override URL",
			errors.Wrap(err, "httpClient.Do")).WithContext("url", uri)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("error closing schema override response body", "url", uri, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		preview := calculatePreview(body)
		code := ErrSchemaLoadFailed
		if resp.StatusCode == http.StatusNotFound {
			code = ErrSchemaNotFound
		}
		return nil, NewValidationError(code, fmt.Sprintf("failed to fetch schema override: HTTP status %d", resp.StatusCode), nil).
			WithContext("url", uri).WithContext("statusCode", resp.StatusCode).WithContext("responseBodyPreview", preview)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewValidationError(ErrSchemaLoadFailed, "failed to read schema override from HTTP response",
			errors.Wrap(err, "io.ReadAll")).WithContext("url", uri)
	}
	logger.Debug("downloaded schema override", "url", uri, "sizeBytes", len(data))
	return data, nil
}
