package openvsx

import (
	"errors"
	"fmt"
	"strings"
)

// VersionData describes one published version of an extension as reported
// by the registry.
type VersionData struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	// Engines maps engine name to a semver range, e.g. {"vsx": "^1.80.0"}.
	// An absent entry means the version runs on any engine.
	Engines map[string]string `json:"engines,omitempty"`
	// Files maps well-known asset names ("download", "icon", "readme",
	// "license") to URLs.
	Files map[string]string `json:"files,omitempty"`
}

// ID returns the canonical lowercase extension id for this version.
func (v VersionData) ID() string {
	return strings.ToLower(v.Namespace) + "." + strings.ToLower(v.Name)
}

// SearchEntry groups all returned versions of one extension.
type SearchEntry struct {
	Namespace   string        `json:"namespace"`
	Name        string        `json:"name"`
	AllVersions []VersionData `json:"all_versions"`
}

// SearchResult is the registry's response to a search request.
type SearchResult struct {
	Offset     int           `json:"offset"`
	TotalSize  int           `json:"total_size"`
	Extensions []SearchEntry `json:"extensions"`
}

type versionsResponse struct {
	Versions []VersionData `json:"versions"`
}

// ErrNotFound reports that the registry has no such extension.
var ErrNotFound = errors.New("extension not found in registry")

// ResponseError carries the HTTP status of a failed registry fetch.
type ResponseError struct {
	URL    string
	Status int
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("fetching %s failed with status %d", e.URL, e.Status)
}

// IsNotFound reports whether err means the registry does not have the
// requested resource, either as a domain error or a 404 response.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.Status == 404
}

// splitID parses a lowercase "namespace.name" id. The name may itself
// contain dots; only the first separates the namespace.
func splitID(id string) (namespace, name string, err error) {
	i := strings.Index(id, ".")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("invalid extension id %q", id)
	}
	return id[:i], id[i+1:], nil
}
