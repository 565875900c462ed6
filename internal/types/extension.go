package types

import "strings"

// Extension represents a marketplace extension known to this session.
// The registry holds at most one instance per ID; refreshes merge new
// data into the existing instance instead of replacing it.
type Extension struct {
	ID          string `json:"id"` // lowercase "namespace.name"
	DisplayName string `json:"display_name,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Builtin     bool   `json:"builtin"`
	Installed   bool   `json:"installed"`

	ReadmeURL   string `json:"readme_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	LicenseURL  string `json:"license_url,omitempty"`

	// ReadmeHTML is populated lazily on first resolution.
	ReadmeHTML string `json:"readme_html,omitempty"`
}

// ExtensionID builds the canonical lowercase id from a namespace and name.
func ExtensionID(namespace, name string) string {
	return strings.ToLower(namespace) + "." + strings.ToLower(name)
}
