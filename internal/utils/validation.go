package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// Input limits
const (
	MaxQueryLength = 256 // maximum search query length
	MaxIDLength    = 128 // maximum extension id length
)

var extensionIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.[a-z0-9][a-z0-9._-]*$`)

// ValidateExtensionID checks that id is a well-formed lowercase
// "namespace.name" identifier.
func ValidateExtensionID(id string) error {
	if id == "" {
		return fmt.Errorf("extension id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("extension id exceeds %d characters", MaxIDLength)
	}
	if id != strings.ToLower(id) {
		return fmt.Errorf("extension id must be lowercase: %s", id)
	}
	if !extensionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid extension id: %s", id)
	}
	return nil
}

// ValidateQuery checks search query bounds. Empty queries are valid and
// mean "show the installed set".
func ValidateQuery(query string) error {
	if len(query) > MaxQueryLength {
		return fmt.Errorf("query exceeds %d characters", MaxQueryLength)
	}
	for _, r := range query {
		if r < 0x20 && r != '\t' {
			return fmt.Errorf("query contains control characters")
		}
	}
	return nil
}
