// Package utils provides input validation shared by the HTTP and
// WebSocket surfaces.
//
// Validation:
//   - Extension id format ("namespace.name", lowercase)
//   - Search query bounds and character set
//
// Features:
//   - Consistent error messages
//   - Configurable limits
package utils
