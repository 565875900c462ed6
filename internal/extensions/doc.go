// Package extensions implements the marketplace model: a per-session
// registry of extensions keyed by id, the installed and search-result
// id-sets derived from it, and the debounced, cancellable query pipeline
// that keeps those sets consistent with the plugin host and the remote
// registry.
package extensions
